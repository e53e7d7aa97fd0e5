package config

import (
	"errors"
	"testing"

	"windfarm-finance-lab/internal/domain"
)

const validConfig = `
sources:
  - id: energy_production
    path: [results, energy_production]
    category: revenue
    has_percentiles: true
  - id: operating_costs
    path: [results, operating_costs]
    category: cost
    has_percentiles: true
  - id: repair_costs
    path: [repairs, scheduled]
    category: cost
    transformer: repair_costs

financing:
  discount_rate: 0.05
  initial_debt: 5000000
  debt_service:
    1: 400000
    2: 400000

scenarios:
  - name: base_case
    type: unified
    percentile: 50
  - name: downside
    type: unified
    percentile: 90
  - name: mixed
    type: perSource
    source_percentiles:
      energy_production: 90
      operating_costs: 50

sensitivity:
  baseline_percentile: 50
  percentiles: [10, 50, 90]
  targets: [npv, irr]
  variables:
    - id: energy
      kind: direct
      source_id: energy_production
    - id: wind_speed
      kind: indirect
      affects: [energy_production]
      impact: recalculation
      distribution:
        10: 8.2
        50: 7.5
        90: 6.9
`

func TestParse_Valid(t *testing.T) {
	f, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(f.Sources) != 3 {
		t.Errorf("Sources: got %d, want 3", len(f.Sources))
	}
	if f.Sources[0].ID != "energy_production" || !f.Sources[0].HasPercentiles {
		t.Errorf("First source: %+v", f.Sources[0])
	}
	if f.Sources[2].Transformer != "repair_costs" {
		t.Errorf("Transformer: got %q", f.Sources[2].Transformer)
	}

	fin := f.Financing.Domain()
	if fin.DiscountRate != 0.05 || fin.InitialDebt != 5_000_000 {
		t.Errorf("Financing: %+v", fin)
	}
	if len(fin.DebtService) != 2 || fin.DebtService[0].Year != 1 || fin.DebtService[0].Value != 400_000 {
		t.Errorf("DebtService: %+v", fin.DebtService)
	}

	scenarios := f.DomainScenarios()
	if len(scenarios) != 3 {
		t.Fatalf("Scenarios: got %d", len(scenarios))
	}
	if scenarios[0].Type != domain.ScenarioUnified || scenarios[0].Percentile != 50 {
		t.Errorf("First scenario: %+v", scenarios[0])
	}
	if scenarios[2].Type != domain.ScenarioPerSource || scenarios[2].SourcePercentiles["energy_production"] != 90 {
		t.Errorf("Per-source scenario: %+v", scenarios[2])
	}

	named := f.NamedScenarios()
	if len(named) != 3 || named[1].Name != "downside" {
		t.Errorf("NamedScenarios: %+v", named)
	}

	if f.Sensitivity.BaselinePercentile != 50 || len(f.Sensitivity.Variables) != 2 {
		t.Errorf("Sensitivity: %+v", f.Sensitivity)
	}
	wind := f.Sensitivity.Variables[1]
	if wind.Kind != domain.VariableIndirect || wind.Impact != domain.ImpactRecalculation {
		t.Errorf("Indirect variable: %+v", wind)
	}
	if wind.Distribution[10] != 8.2 {
		t.Errorf("Distribution: %+v", wind.Distribution)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			"no sources",
			`scenarios: [{name: x, type: unified, percentile: 50}]`,
		},
		{
			"empty source id",
			`sources: [{category: cost}]`,
		},
		{
			"duplicate source id",
			`sources:
  - {id: a, category: cost}
  - {id: a, category: cost}`,
		},
		{
			"invalid category",
			`sources: [{id: a, category: profit}]`,
		},
		{
			"empty scenario name",
			`sources: [{id: a, category: cost}]
scenarios: [{type: unified, percentile: 50}]`,
		},
		{
			"duplicate scenario name",
			`sources: [{id: a, category: cost}]
scenarios:
  - {name: x, type: unified, percentile: 50}
  - {name: x, type: unified, percentile: 90}`,
		},
		{
			"invalid scenario type",
			`sources: [{id: a, category: cost}]
scenarios: [{name: x, type: gaussian}]`,
		},
		{
			"perSource without percentiles",
			`sources: [{id: a, category: cost}]
scenarios: [{name: x, type: perSource}]`,
		},
		{
			"variable with invalid kind",
			`sources: [{id: a, category: cost}]
sensitivity:
  variables: [{id: v, kind: stochastic}]`,
		},
		{
			"direct variable with unknown source",
			`sources: [{id: a, category: cost}]
sensitivity:
  variables: [{id: v, kind: direct, source_id: ghost}]`,
		},
		{
			"variable affecting unknown source",
			`sources: [{id: a, category: cost}]
sensitivity:
  variables: [{id: v, kind: indirect, affects: [ghost], impact: multiplicative}]`,
		},
	}

	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte(`
sources: [{id: a, category: cost}]
turbines: 12
`))
	if err == nil {
		t.Error("Unknown top-level field should fail strict parsing")
	}
}
