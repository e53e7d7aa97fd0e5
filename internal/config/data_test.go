package config

import (
	"os"
	"path/filepath"
	"testing"

	"windfarm-finance-lab/internal/domain"
)

const sampleData = `
results:
  energy_production:
    50:
      1: 3500
      2: 3450
    90:
      1: 3100

contracts:
  offtake:
    - id: ppa-1
      start_year: 1
      end_year: 10
      price_per_mwh: 55
      annual_mwh: 3000

repairs:
  scheduled:
    - {year: 10, cost: 250000}

drawdowns:
  capex:
    total: 12000000
    fractions:
      -1: 0.6
      0: 0.4

values:
  insurance:
    1: 90000
    2: 90000
`

func writeData(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write data file: %v", err)
	}
	return path
}

func TestLoadData(t *testing.T) {
	f, err := LoadData(writeData(t, sampleData))
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}

	ids := f.SourceIDs()
	if len(ids) != 1 || ids[0] != "energy_production" {
		t.Errorf("SourceIDs: got %v", ids)
	}

	series := f.Series("energy_production")
	if len(series) != 2 {
		t.Fatalf("Expected 2 percentiles, got %d", len(series))
	}
	p50 := series[50]
	if len(p50) != 2 || p50[0].Year != 1 || p50[0].Value != 3500 {
		t.Errorf("P50 series: %+v", p50)
	}
	if series[90][0].Value != 3100 {
		t.Errorf("P90 series: %+v", series[90])
	}

	// Absent source yields an empty map, not a panic
	if got := f.Series("missing"); len(got) != 0 {
		t.Errorf("Missing source: got %v", got)
	}
}

func TestBaseDocument(t *testing.T) {
	f, err := LoadData(writeData(t, sampleData))
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}

	doc := f.BaseDocument()

	raw := doc.GetValueByPath([]string{ContractsKey, "offtake"})
	contracts, ok := raw.([]domain.ContractRecord)
	if !ok {
		t.Fatalf("Contracts: expected []ContractRecord, got %T", raw)
	}
	if len(contracts) != 1 || contracts[0].ID != "ppa-1" || contracts[0].PricePerMWh != 55 {
		t.Errorf("Contract: %+v", contracts)
	}

	raw = doc.GetValueByPath([]string{RepairsKey, "scheduled"})
	repairs, ok := raw.([]domain.RepairEvent)
	if !ok || len(repairs) != 1 || repairs[0].Cost != 250_000 {
		t.Errorf("Repairs: %v (%T)", raw, raw)
	}

	raw = doc.GetValueByPath([]string{DrawdownsKey, "capex"})
	sched, ok := raw.(domain.DrawdownSchedule)
	if !ok || sched.Total != 12_000_000 || sched.Fractions[-1] != 0.6 {
		t.Errorf("Drawdown: %v (%T)", raw, raw)
	}

	raw = doc.GetValueByPath([]string{ValuesKey, "insurance"})
	values, ok := raw.(domain.TimeSeries)
	if !ok || len(values) != 2 || values[0].Value != 90_000 {
		t.Errorf("Values: %v (%T)", raw, raw)
	}
}

func TestLoadData_Empty(t *testing.T) {
	_, err := LoadData(writeData(t, "{}"))
	if err == nil {
		t.Error("Empty data file should fail")
	}
}

func TestLoadData_MissingFile(t *testing.T) {
	_, err := LoadData(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("Missing file should fail")
	}
}
