package domain

import "sort"

// VariableKind distinguishes how a sensitivity variable reaches the cash flows.
type VariableKind string

const (
	// VariableDirect varies a single line item from the cash-flow registry.
	VariableDirect VariableKind = "direct"
	// VariableIndirect varies through an affects-mapping onto direct sources.
	VariableIndirect VariableKind = "indirect"
)

// IsValid checks if the kind is a valid value.
func (k VariableKind) IsValid() bool {
	return k == VariableDirect || k == VariableIndirect
}

// ImpactType is how an indirect variable's change maps onto affected sources.
type ImpactType string

const (
	ImpactMultiplicative ImpactType = "multiplicative"
	ImpactAdditive       ImpactType = "additive"
	ImpactRecalculation  ImpactType = "recalculation"
)

// IsValid checks if the impact type is a valid value.
func (t ImpactType) IsValid() bool {
	return t == ImpactMultiplicative || t == ImpactAdditive || t == ImpactRecalculation
}

// SensitivityVariable is one upstream quantity whose percentile can be varied
// independently of the baseline. Variables are static configuration loaded once
// at process start.
type SensitivityVariable struct {
	ID   string       `yaml:"id"`
	Kind VariableKind `yaml:"kind"`

	// SourceID names the varied cash-flow source for direct variables.
	SourceID string `yaml:"source_id"`

	// Affects lists the direct source ids an indirect variable maps onto.
	Affects []string `yaml:"affects"`

	// Impact is how the indirect change applies to affected sources.
	Impact ImpactType `yaml:"impact"`

	// Distribution holds percentile-indexed magnitudes for indirect variables
	// that carry their own distribution rather than a cash-flow series.
	Distribution map[float64]float64 `yaml:"distribution"`
}

// SensitivityCell is one (variable, metric) entry of a sensitivity cube:
// the baseline metric value and the estimated value at each varied percentile.
type SensitivityCell struct {
	VariableID string
	MetricID   string
	BaseValue  float64
	Impacts    map[float64]float64
}

// SortedPercentiles returns the cell's impact percentiles in ascending order.
func (c SensitivityCell) SortedPercentiles() []float64 {
	ps := make([]float64, 0, len(c.Impacts))
	for p := range c.Impacts {
		ps = append(ps, p)
	}
	sort.Float64s(ps)
	return ps
}

// SensitivityCube is the precomputed matrix of impact estimates indexed by
// (variable, metric). Instances are owned exclusively by the caller that
// requested the computation.
type SensitivityCube struct {
	BaselinePercentile float64
	Cells              []SensitivityCell
}

// Cell returns the cell for (variableID, metricID), or nil if absent.
func (c *SensitivityCube) Cell(variableID, metricID string) *SensitivityCell {
	for i := range c.Cells {
		if c.Cells[i].VariableID == variableID && c.Cells[i].MetricID == metricID {
			return &c.Cells[i]
		}
	}
	return nil
}
