package domain

// MetricCategory separates the two tiers of the metric graph.
// Foundational metrics read extracted sources directly; analytical metrics only
// consume other metrics' results.
type MetricCategory string

const (
	MetricFoundational MetricCategory = "foundational"
	MetricAnalytical   MetricCategory = "analytical"
)

// IsValid checks if the category is a valid value.
func (c MetricCategory) IsValid() bool {
	return c == MetricFoundational || c == MetricAnalytical
}

// String returns the string representation of MetricCategory.
func (c MetricCategory) String() string {
	return string(c)
}

// MetricResult is the outcome of one metric computation.
// A result carries either a scalar value, a time series, or an error.
// Err set implies Value nil and Series empty: absence of data is a value,
// never a panic, at this boundary.
type MetricResult struct {
	Value    *float64
	Series   TimeSeries
	Err      string
	Metadata map[string]string
}

// OK reports whether the result carries no error.
func (r MetricResult) OK() bool {
	return r.Err == ""
}

// HasValue reports whether the result carries a scalar value.
func (r MetricResult) HasValue() bool {
	return r.Err == "" && r.Value != nil
}

// ScalarResult returns a successful scalar result.
func ScalarResult(v float64) MetricResult {
	return MetricResult{Value: &v}
}

// SeriesResult returns a successful time-series result.
func SeriesResult(ts TimeSeries) MetricResult {
	return MetricResult{Series: ts}
}

// ErrorResult returns a failed result with the given message.
func ErrorResult(msg string) MetricResult {
	return MetricResult{Err: msg}
}

// Thresholds classify a scalar metric value for presentation layers.
// Good and Warn bound the acceptable range; direction depends on the metric
// (HigherIsBetter).
type Thresholds struct {
	Good           float64
	Warn           float64
	HigherIsBetter bool
}
