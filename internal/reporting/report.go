package reporting

import "time"

// Report is the rendered output of one computation run: every metric
// across every scenario, plus the sensitivity ranking when available.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	RunID         string
	ScenarioCount int
	MetricCount   int

	// Metric matrix (one row per metric, one column per scenario,
	// sorted by metric id and scenario label)
	Scenarios []ScenarioColumn
	Metrics   []MetricRow

	// Sensitivity tornado (sorted by descending spread)
	Sensitivity []TornadoRow
}

// ScenarioColumn identifies one column of the metric matrix.
type ScenarioColumn struct {
	Key   string
	Label string
}

// MetricRow holds one metric's value in every scenario, in the same
// order as Report.Scenarios.
type MetricRow struct {
	MetricID string
	Category string
	Cells    []Cell
}

// Cell is one metric value in one scenario.
type Cell struct {
	Value     *float64
	Formatted string
	Err       string
}

// TornadoRow summarizes how far one variable moves one metric across
// its percentile range.
type TornadoRow struct {
	VariableID string
	MetricID   string
	BaseValue  float64
	Low        float64
	High       float64
	Spread     float64
}
