package domain

// NamedScenario pairs a persisted scenario definition with its name.
type NamedScenario struct {
	Name     string
	Scenario PercentileScenario
}

// MetricResultRow is one persisted metric result for a (run, scenario) pair.
// Value is nil when the metric failed; Err carries the message.
type MetricResultRow struct {
	RunID         string
	ScenarioKey   string
	ScenarioLabel string
	MetricID      string
	Value         *float64
	Err           string
}

// SensitivityCellRow is one persisted sensitivity cube entry.
type SensitivityCellRow struct {
	RunID      string
	VariableID string
	MetricID   string
	Percentile float64
	BaseValue  float64
	Estimate   float64
}
