// Package config loads the YAML run configuration: cash-flow sources,
// financing terms, scenarios, and sensitivity variables.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"windfarm-finance-lab/internal/domain"
)

// File is the top-level configuration document.
type File struct {
	Sources     []domain.SourceConfig `yaml:"sources"`
	Financing   Financing             `yaml:"financing"`
	Scenarios   []Scenario            `yaml:"scenarios"`
	Sensitivity Sensitivity           `yaml:"sensitivity"`
}

// Financing mirrors domain.FinancingConfig with YAML-friendly
// year-keyed series.
type Financing struct {
	DiscountRate     float64         `yaml:"discount_rate"`
	InitialDebt      float64         `yaml:"initial_debt"`
	DebtService      map[int]float64 `yaml:"debt_service"`
	InterestPayments map[int]float64 `yaml:"interest_payments"`
	EquityDraws      map[int]float64 `yaml:"equity_draws"`
}

// Domain converts to the domain financing config.
func (f Financing) Domain() domain.FinancingConfig {
	return domain.FinancingConfig{
		DiscountRate:     f.DiscountRate,
		InitialDebt:      f.InitialDebt,
		DebtService:      seriesFromMap(f.DebtService),
		InterestPayments: seriesFromMap(f.InterestPayments),
		EquityDraws:      seriesFromMap(f.EquityDraws),
	}
}

// Scenario is one named computation scenario.
type Scenario struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// Percentile applies when Type is unified.
	Percentile float64 `yaml:"percentile"`

	// SourcePercentiles applies when Type is perSource.
	SourcePercentiles map[string]float64 `yaml:"source_percentiles"`
}

// Domain converts to a domain scenario.
func (s Scenario) Domain() domain.PercentileScenario {
	if domain.ScenarioType(s.Type) == domain.ScenarioPerSource {
		return domain.PerSourceScenario(s.SourcePercentiles)
	}
	return domain.UnifiedScenario(s.Percentile)
}

// Sensitivity configures the sensitivity analysis phase.
type Sensitivity struct {
	BaselinePercentile float64                      `yaml:"baseline_percentile"`
	Percentiles        []float64                    `yaml:"percentiles"`
	Targets            []string                     `yaml:"targets"`
	Variables          []domain.SensitivityVariable `yaml:"variables"`
}

// Load reads and validates a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates configuration bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Sources) == 0 {
		return fmt.Errorf("%w: config has no sources", domain.ErrValidation)
	}
	seen := make(map[string]bool)
	for _, src := range f.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: source with empty id", domain.ErrValidation)
		}
		if seen[src.ID] {
			return fmt.Errorf("%w: duplicate source id %q", domain.ErrValidation, src.ID)
		}
		seen[src.ID] = true
		if !src.Category.IsValid() {
			return fmt.Errorf("%w: source %q has invalid category %q", domain.ErrValidation, src.ID, src.Category)
		}
	}

	names := make(map[string]bool)
	for _, sc := range f.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("%w: scenario with empty name", domain.ErrValidation)
		}
		if names[sc.Name] {
			return fmt.Errorf("%w: duplicate scenario name %q", domain.ErrValidation, sc.Name)
		}
		names[sc.Name] = true
		if sc.Type != "" && !domain.ScenarioType(sc.Type).IsValid() {
			return fmt.Errorf("%w: scenario %q has invalid type %q", domain.ErrValidation, sc.Name, sc.Type)
		}
		if domain.ScenarioType(sc.Type) == domain.ScenarioPerSource && len(sc.SourcePercentiles) == 0 {
			return fmt.Errorf("%w: perSource scenario %q has no source percentiles", domain.ErrValidation, sc.Name)
		}
	}

	for _, v := range f.Sensitivity.Variables {
		if v.ID == "" {
			return fmt.Errorf("%w: sensitivity variable with empty id", domain.ErrValidation)
		}
		if !v.Kind.IsValid() {
			return fmt.Errorf("%w: sensitivity variable %q has invalid kind %q", domain.ErrValidation, v.ID, v.Kind)
		}
		if v.Kind == domain.VariableDirect && !seen[v.SourceID] {
			return fmt.Errorf("%w: sensitivity variable %q references unknown source %q", domain.ErrValidation, v.ID, v.SourceID)
		}
		for _, affected := range v.Affects {
			if !seen[affected] {
				return fmt.Errorf("%w: sensitivity variable %q affects unknown source %q", domain.ErrValidation, v.ID, affected)
			}
		}
	}

	return nil
}

// DomainScenarios converts every configured scenario, in file order.
func (f *File) DomainScenarios() []domain.PercentileScenario {
	out := make([]domain.PercentileScenario, 0, len(f.Scenarios))
	for _, sc := range f.Scenarios {
		out = append(out, sc.Domain())
	}
	return out
}

// NamedScenarios converts every configured scenario with its name.
func (f *File) NamedScenarios() []*domain.NamedScenario {
	out := make([]*domain.NamedScenario, 0, len(f.Scenarios))
	for _, sc := range f.Scenarios {
		out = append(out, &domain.NamedScenario{Name: sc.Name, Scenario: sc.Domain()})
	}
	return out
}

func seriesFromMap(m map[int]float64) domain.TimeSeries {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	out := make(domain.TimeSeries, 0, len(m))
	for _, y := range years {
		out = append(out, domain.DataPoint{Year: y, Value: m[y]})
	}
	return out
}
