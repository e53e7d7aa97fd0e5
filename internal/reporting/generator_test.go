package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/metric"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Build(registry.Config{
		Metrics: []registry.MetricDef{
			{
				ID: "net_cashflow", Category: domain.MetricFoundational, Priority: 1,
				Calculate: func(_ registry.CalcInput, _ registry.AggregationSpec) domain.MetricResult {
					return domain.ScalarResult(0)
				},
				Format: metric.FormatCurrency,
			},
			{
				ID: "npv", Category: domain.MetricAnalytical, Priority: 10, DependsOn: []string{"net_cashflow"},
				Calculate: func(_ registry.CalcInput, _ registry.AggregationSpec) domain.MetricResult {
					return domain.ScalarResult(0)
				},
				Format: metric.FormatCurrency,
			},
			{
				ID: "irr", Category: domain.MetricAnalytical, Priority: 11, DependsOn: []string{"net_cashflow"},
				Calculate: func(_ registry.CalcInput, _ registry.AggregationSpec) domain.MetricResult {
					return domain.ScalarResult(0)
				},
				Format: metric.FormatPercent,
			},
		},
	})
	if err != nil {
		t.Fatalf("Build registry: %v", err)
	}
	return reg
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func sampleRows() []*domain.MetricResultRow {
	return []*domain.MetricResultRow{
		{RunID: "run-1", ScenarioKey: "key-b", ScenarioLabel: "P90", MetricID: "npv", Value: ptr(1_200_000.0)},
		{RunID: "run-1", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "npv", Value: ptr(2_500_000.0)},
		{RunID: "run-1", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "irr", Value: ptr(0.085)},
		{RunID: "run-1", ScenarioKey: "key-b", ScenarioLabel: "P90", MetricID: "irr", Err: "no sign change in cash flows"},
	}
}

func TestFromRows_Matrix(t *testing.T) {
	g := NewGenerator(testRegistry(t), nil, nil).WithClock(fixedClock())

	report := g.FromRows("run-1", sampleRows(), nil)

	if report.RunID != "run-1" {
		t.Errorf("RunID: got %s", report.RunID)
	}
	if !report.GeneratedAt.Equal(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("GeneratedAt: got %v", report.GeneratedAt)
	}
	if report.ScenarioCount != 2 || report.MetricCount != 2 {
		t.Errorf("Counts: scenarios %d, metrics %d", report.ScenarioCount, report.MetricCount)
	}

	// Columns sorted by label
	if report.Scenarios[0].Label != "P50" || report.Scenarios[1].Label != "P90" {
		t.Errorf("Column order: %+v", report.Scenarios)
	}

	// Metric rows follow registry order: npv (priority 10) before irr (11)
	if report.Metrics[0].MetricID != "npv" || report.Metrics[1].MetricID != "irr" {
		t.Errorf("Metric order: got [%s %s]", report.Metrics[0].MetricID, report.Metrics[1].MetricID)
	}
	if report.Metrics[0].Category != "analytical" {
		t.Errorf("Category: got %s", report.Metrics[0].Category)
	}

	npvP50 := report.Metrics[0].Cells[0]
	if npvP50.Value == nil || *npvP50.Value != 2_500_000.0 {
		t.Errorf("NPV P50 cell: %+v", npvP50)
	}
	if npvP50.Formatted != "2,500,000.00 EUR" {
		t.Errorf("NPV formatted: got %q", npvP50.Formatted)
	}

	irrP90 := report.Metrics[1].Cells[1]
	if irrP90.Err == "" || irrP90.Value != nil {
		t.Errorf("Failed IRR cell: %+v", irrP90)
	}
}

func TestFromRows_Tornado(t *testing.T) {
	g := NewGenerator(testRegistry(t), nil, nil).WithClock(fixedClock())

	cells := []*domain.SensitivityCellRow{
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 10, BaseValue: 2000, Estimate: 2600},
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 90, BaseValue: 2000, Estimate: 1200},
		{RunID: "run-1", VariableID: "costs", MetricID: "npv", Percentile: 10, BaseValue: 2000, Estimate: 2100},
		{RunID: "run-1", VariableID: "costs", MetricID: "npv", Percentile: 90, BaseValue: 2000, Estimate: 1800},
	}

	report := g.FromRows("run-1", nil, cells)
	if len(report.Sensitivity) != 2 {
		t.Fatalf("Expected 2 tornado rows, got %d", len(report.Sensitivity))
	}

	// Widest spread first: energy (1400) before costs (300)
	top := report.Sensitivity[0]
	if top.VariableID != "energy" {
		t.Errorf("Top row: got %s, want energy", top.VariableID)
	}
	if top.Low != 1200 || top.High != 2600 || top.Spread != 1400 {
		t.Errorf("Energy row: %+v", top)
	}
	if report.Sensitivity[1].Spread != 300 {
		t.Errorf("Costs spread: got %v, want 300", report.Sensitivity[1].Spread)
	}
}

func TestGenerate_LoadsFromStores(t *testing.T) {
	ctx := context.Background()
	resultStore := memory.NewMetricResultStore()
	cellStore := memory.NewSensitivityCellStore()

	if err := resultStore.InsertBulk(ctx, sampleRows()); err != nil {
		t.Fatalf("Seed results: %v", err)
	}
	if err := cellStore.InsertBulk(ctx, []*domain.SensitivityCellRow{
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 90, BaseValue: 2000, Estimate: 1200},
	}); err != nil {
		t.Fatalf("Seed cells: %v", err)
	}

	g := NewGenerator(testRegistry(t), resultStore, cellStore).WithClock(fixedClock())
	report, err := g.Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.MetricCount != 2 || report.ScenarioCount != 2 {
		t.Errorf("Counts: %d metrics, %d scenarios", report.MetricCount, report.ScenarioCount)
	}
	if len(report.Sensitivity) != 1 {
		t.Errorf("Expected 1 tornado row, got %d", len(report.Sensitivity))
	}

	// A run with no rows reports empty, not an error
	empty, err := g.Generate(ctx, "missing-run")
	if err != nil {
		t.Fatalf("Generate on missing run failed: %v", err)
	}
	if empty.MetricCount != 0 {
		t.Errorf("Expected empty report, got %d metrics", empty.MetricCount)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := NewGenerator(testRegistry(t), nil, nil).WithClock(fixedClock())
	report := g.FromRows("run-1", sampleRows(), []*domain.SensitivityCellRow{
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 90, BaseValue: 2000, Estimate: 1200},
	})

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Project Finance Report",
		"Run: run-1",
		"## Metrics",
		"| npv | analytical | 2,500,000.00 EUR | 1,200,000.00 EUR |",
		"ERROR",
		"## Failures",
		"no sign change in cash flows",
		"## Sensitivity",
		"| energy | npv |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	g := NewGenerator(testRegistry(t), nil, nil).WithClock(fixedClock())
	report := g.FromRows("run-1", sampleRows(), nil)

	csv := RenderCSV(report)
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "run_id,metric_id,category,scenario_key,scenario_label,value,error" {
		t.Errorf("Header: got %q", lines[0])
	}
	// 2 metrics x 2 scenarios
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d", len(lines))
	}
	if !strings.Contains(csv, "run-1,npv,analytical,key-a,P50,2500000.000000,") {
		t.Errorf("CSV missing npv row:\n%s", csv)
	}
	if !strings.Contains(csv, "no sign change in cash flows") {
		t.Errorf("CSV missing error message:\n%s", csv)
	}
}

func TestRenderSensitivityCSV(t *testing.T) {
	g := NewGenerator(testRegistry(t), nil, nil).WithClock(fixedClock())
	report := g.FromRows("run-1", nil, []*domain.SensitivityCellRow{
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 10, BaseValue: 2000, Estimate: 2600},
		{RunID: "run-1", VariableID: "energy", MetricID: "npv", Percentile: 90, BaseValue: 2000, Estimate: 1200},
	})

	csv := RenderSensitivityCSV(report)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if lines[0] != "run_id,variable_id,metric_id,base_value,low,high,spread" {
		t.Errorf("Header: got %q", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "run-1,energy,npv,2000.000000,1200.000000,2600.000000,1400.000000" {
		t.Errorf("Row: got %q", lines[1])
	}
}

func TestCSVEscape(t *testing.T) {
	if got := csvEscape("plain"); got != "plain" {
		t.Errorf("Plain: got %q", got)
	}
	if got := csvEscape(`has "quotes", and comma`); got != `"has ""quotes"", and comma"` {
		t.Errorf("Escaped: got %q", got)
	}
}
