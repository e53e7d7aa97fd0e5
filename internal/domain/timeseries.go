package domain

import "sort"

// DataPoint is a single annual value in a cash-flow or production series.
// Year 0 and negative years denote pre-operational (construction) periods,
// positive years denote operational periods.
type DataPoint struct {
	Year  int
	Value float64
}

// TimeSeries is an ordered sequence of annual data points. Years need not be
// contiguous and callers must not assume sorted input; consumers sort before use.
type TimeSeries []DataPoint

// Sorted returns a copy of the series ordered by ascending year.
// The receiver is never mutated.
func (ts TimeSeries) Sorted() TimeSeries {
	out := make(TimeSeries, len(ts))
	copy(out, ts)
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Clone returns a copy of the series in its current order.
func (ts TimeSeries) Clone() TimeSeries {
	out := make(TimeSeries, len(ts))
	copy(out, ts)
	return out
}

// Values returns the values in the series' current order.
func (ts TimeSeries) Values() []float64 {
	out := make([]float64, len(ts))
	for i, p := range ts {
		out[i] = p.Value
	}
	return out
}

// Sum returns the arithmetic sum of all values.
func (ts TimeSeries) Sum() float64 {
	var total float64
	for _, p := range ts {
		total += p.Value
	}
	return total
}

// ValueAt returns the value for the given year and whether it exists.
func (ts TimeSeries) ValueAt(year int) (float64, bool) {
	for _, p := range ts {
		if p.Year == year {
			return p.Value, true
		}
	}
	return 0, false
}

// ByYear returns a year-indexed map of the series.
// Duplicate years resolve to the last point in sorted order.
func (ts TimeSeries) ByYear() map[int]float64 {
	out := make(map[int]float64, len(ts))
	for _, p := range ts.Sorted() {
		out[p.Year] = p.Value
	}
	return out
}

// Operational returns the operational (year > 0) subset, sorted.
func (ts TimeSeries) Operational() TimeSeries {
	var out TimeSeries
	for _, p := range ts.Sorted() {
		if p.Year > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Construction returns the pre-operational (year <= 0) subset, sorted.
func (ts TimeSeries) Construction() TimeSeries {
	var out TimeSeries
	for _, p := range ts.Sorted() {
		if p.Year <= 0 {
			out = append(out, p)
		}
	}
	return out
}
