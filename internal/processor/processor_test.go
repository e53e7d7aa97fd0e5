package processor

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/registry"
)

// fakeAccessor serves raw data keyed by slash-joined path.
type fakeAccessor struct {
	data map[string]any
}

func (f *fakeAccessor) GetValueByPath(path []string) any {
	return f.data[strings.Join(path, "/")]
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	sources := []domain.SourceConfig{
		{ID: registry.SourceEnergyProduction, Path: []string{"results", "energy"}, Category: domain.SourceRevenue, HasPercentiles: true},
		{ID: registry.SourceOperatingCosts, Path: []string{"results", "costs"}, Category: domain.SourceCost, HasPercentiles: true},
	}
	reg, err := registry.Build(registry.Config{
		Metrics: registry.BuiltinMetrics(sources),
		Sources: sources,
		Financing: domain.FinancingConfig{
			DiscountRate: 0.05,
			InitialDebt:  5000,
			DebtService: domain.TimeSeries{
				{Year: 1, Value: 300},
				{Year: 2, Value: 300},
			},
			InterestPayments: domain.TimeSeries{
				{Year: 1, Value: 150},
				{Year: 2, Value: 150},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build registry: %v", err)
	}
	return reg
}

func testAccessor() *fakeAccessor {
	return &fakeAccessor{data: map[string]any{
		"results/energy": map[float64]domain.TimeSeries{
			50: {{Year: 0, Value: 0}, {Year: 1, Value: 5000}, {Year: 2, Value: 5000}},
			90: {{Year: 0, Value: 0}, {Year: 1, Value: 4200}, {Year: 2, Value: 4200}},
		},
		"results/costs": map[float64]domain.TimeSeries{
			50: {{Year: 0, Value: 8000}, {Year: 1, Value: 1000}, {Year: 2, Value: 1000}},
			90: {{Year: 0, Value: 8000}, {Year: 1, Value: 1200}, {Year: 2, Value: 1200}},
		},
	}}
}

func TestComputeAll_SingleScenario(t *testing.T) {
	p := New(Options{Registry: testRegistry(t), Accessor: testAccessor()})

	batch, err := p.ComputeAll(context.Background(), []domain.PercentileScenario{
		domain.UnifiedScenario(50),
	})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	if batch.RunID == "" {
		t.Error("Expected a run id")
	}
	if len(batch.Scenarios) != 1 {
		t.Fatalf("Expected 1 scenario, got %d", len(batch.Scenarios))
	}

	sc := batch.Scenarios[0]
	if sc.Label != "P50" {
		t.Errorf("Label: got %s, want P50", sc.Label)
	}

	ncf := sc.Results[registry.MetricNetCashflow]
	if !ncf.OK() {
		t.Fatalf("net_cashflow failed: %s", ncf.Err)
	}
	// Year 1 NCF: 5000 - 1000 = 4000
	byYear := ncf.Series.ByYear()
	if byYear[1] != 4000 {
		t.Errorf("Year 1 NCF: got %v, want 4000", byYear[1])
	}
	if byYear[0] != -8000 {
		t.Errorf("Year 0 NCF: got %v, want -8000", byYear[0])
	}

	npv := sc.Results[registry.MetricNPV]
	if !npv.HasValue() {
		t.Fatalf("npv failed: %s", npv.Err)
	}
	wantNPV := -8000 + 4000/1.05 + 4000/(1.05*1.05)
	if math.Abs(*npv.Value-wantNPV) > 0.01 {
		t.Errorf("NPV: got %v, want %v", *npv.Value, wantNPV)
	}

	dscr := sc.Results[registry.MetricAvgDSCR]
	if !dscr.HasValue() {
		t.Fatalf("avg_dscr failed: %s", dscr.Err)
	}
	// 4000/300 each operational year
	if math.Abs(*dscr.Value-13.33) > 0.01 {
		t.Errorf("Avg DSCR: got %v, want ~13.33", *dscr.Value)
	}
}

func TestComputeAll_MultipleScenariosIndependent(t *testing.T) {
	p := New(Options{Registry: testRegistry(t), Accessor: testAccessor()})

	batch, err := p.ComputeAll(context.Background(), []domain.PercentileScenario{
		domain.UnifiedScenario(50),
		domain.UnifiedScenario(90),
	})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	if len(batch.Scenarios) != 2 {
		t.Fatalf("Expected 2 scenarios, got %d", len(batch.Scenarios))
	}

	// Request order preserved
	if batch.Scenarios[0].Label != "P50" || batch.Scenarios[1].Label != "P90" {
		t.Errorf("Scenario order: got [%s %s]", batch.Scenarios[0].Label, batch.Scenarios[1].Label)
	}

	npv50 := batch.Scenarios[0].Results[registry.MetricNPV]
	npv90 := batch.Scenarios[1].Results[registry.MetricNPV]
	if !npv50.HasValue() || !npv90.HasValue() {
		t.Fatal("Expected NPV values in both scenarios")
	}
	// P90 has less energy and higher costs: strictly worse NPV
	if *npv90.Value >= *npv50.Value {
		t.Errorf("P90 NPV %v should be below P50 NPV %v", *npv90.Value, *npv50.Value)
	}
}

func TestComputeAll_ParallelMatchesSerial(t *testing.T) {
	scenarios := []domain.PercentileScenario{
		domain.UnifiedScenario(10),
		domain.UnifiedScenario(50),
		domain.UnifiedScenario(90),
		domain.PerSourceScenario(map[string]float64{registry.SourceEnergyProduction: 90}),
	}
	acc := testAccessor()
	acc.data["results/energy"].(map[float64]domain.TimeSeries)[10] = domain.TimeSeries{{Year: 1, Value: 6000}, {Year: 2, Value: 6000}}
	acc.data["results/costs"].(map[float64]domain.TimeSeries)[10] = domain.TimeSeries{{Year: 0, Value: 8000}, {Year: 1, Value: 900}}

	serial := New(Options{Registry: testRegistry(t), Accessor: acc, Parallelism: 1})
	parallel := New(Options{Registry: testRegistry(t), Accessor: acc, Parallelism: 4})

	sBatch, err := serial.ComputeAll(context.Background(), scenarios)
	if err != nil {
		t.Fatalf("Serial ComputeAll failed: %v", err)
	}
	pBatch, err := parallel.ComputeAll(context.Background(), scenarios)
	if err != nil {
		t.Fatalf("Parallel ComputeAll failed: %v", err)
	}

	for i := range scenarios {
		s, p := sBatch.Scenarios[i], pBatch.Scenarios[i]
		if s.Key != p.Key {
			t.Errorf("Scenario %d key mismatch: %s vs %s", i, s.Key, p.Key)
		}
		for metricID, sr := range s.Results {
			pr, ok := p.Results[metricID]
			if !ok {
				t.Errorf("Scenario %d: metric %s missing in parallel batch", i, metricID)
				continue
			}
			if sr.OK() != pr.OK() {
				t.Errorf("Scenario %d metric %s: ok mismatch", i, metricID)
				continue
			}
			if sr.HasValue() && *sr.Value != *pr.Value {
				t.Errorf("Scenario %d metric %s: %v vs %v", i, metricID, *sr.Value, *pr.Value)
			}
		}
	}
}

func TestComputeAll_FailingMetricIsolated(t *testing.T) {
	// No costs at all: total_costs fails, but energy_yield still computes
	acc := &fakeAccessor{data: map[string]any{
		"results/energy": map[float64]domain.TimeSeries{
			50: {{Year: 1, Value: 5000}, {Year: 2, Value: 5000}},
		},
	}}
	p := New(Options{Registry: testRegistry(t), Accessor: acc})

	batch, err := p.ComputeAll(context.Background(), []domain.PercentileScenario{domain.UnifiedScenario(50)})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	results := batch.Scenarios[0].Results

	if results[registry.MetricTotalCosts].OK() {
		t.Error("total_costs should fail without cost sources")
	}
	if !results[registry.MetricEnergyYield].OK() {
		t.Errorf("energy_yield should still compute: %s", results[registry.MetricEnergyYield].Err)
	}
	// LCOE depends on total_costs: fails, with a message, not a panic
	lcoe := results[registry.MetricLCOE]
	if lcoe.OK() {
		t.Error("lcoe should fail when total_costs failed")
	}
	if lcoe.Err == "" {
		t.Error("lcoe failure should carry a message")
	}
	// All-positive cash flows: IRR undefined but NPV fine
	if results[registry.MetricIRR].OK() {
		t.Error("irr should fail on sign-constant cash flows")
	}
	if !results[registry.MetricNPV].HasValue() {
		t.Errorf("npv should still compute: %s", results[registry.MetricNPV].Err)
	}
}

func TestComputeAll_Validation(t *testing.T) {
	p := New(Options{Registry: testRegistry(t), Accessor: testAccessor()})

	_, err := p.ComputeAll(context.Background(), nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Empty scenarios: expected ErrValidation, got %v", err)
	}

	_, err = p.ComputeAll(context.Background(), []domain.PercentileScenario{{Type: "gaussian"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Invalid type: expected ErrValidation, got %v", err)
	}
}

func TestComputeAll_ContextCancelled(t *testing.T) {
	p := New(Options{Registry: testRegistry(t), Accessor: testAccessor(), Parallelism: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ComputeAll(ctx, []domain.PercentileScenario{domain.UnifiedScenario(50)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBatchResult_ByMetric(t *testing.T) {
	p := New(Options{Registry: testRegistry(t), Accessor: testAccessor()})

	batch, err := p.ComputeAll(context.Background(), []domain.PercentileScenario{
		domain.UnifiedScenario(50),
		domain.UnifiedScenario(90),
	})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	byMetric := batch.ByMetric()
	npv := byMetric[registry.MetricNPV]
	if len(npv) != 2 {
		t.Fatalf("Expected npv in 2 scenarios, got %d", len(npv))
	}
	labels := map[string]bool{}
	for _, sm := range npv {
		labels[sm.Label] = true
	}
	if !labels["P50"] || !labels["P90"] {
		t.Errorf("ByMetric labels: got %v", labels)
	}
}
