// Package aggregate reduces ordered annual series to scalars under named
// strategies. All functions are pure; empty input after filtering yields nil,
// never an error or a panic.
package aggregate

import (
	"log"
	"math"

	"windfarm-finance-lab/internal/domain"
)

// Method names an aggregation strategy.
type Method string

const (
	MethodSum          Method = "sum"
	MethodMean         Method = "mean"
	MethodWeightedMean Method = "weighted_mean"
	MethodMin          Method = "min"
	MethodMax          Method = "max"
	MethodNPV          Method = "npv"
	MethodFirst        Method = "first"
	MethodLast         Method = "last"
)

// IsValid checks if the method is a valid value.
func (m Method) IsValid() bool {
	switch m {
	case MethodSum, MethodMean, MethodWeightedMean, MethodMin, MethodMax,
		MethodNPV, MethodFirst, MethodLast:
		return true
	}
	return false
}

// Filter names a year-range predicate applied before aggregation.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterOperational  Filter = "operational"  // year > 0
	FilterConstruction Filter = "construction" // year <= 0
	FilterEarly        Filter = "early"        // 0 < year <= 5
	FilterLate         Filter = "late"         // year > 15
)

// Options tune one aggregation call.
type Options struct {
	Filter       Filter
	DiscountRate float64
	// Precision is the number of decimal digits in the result; the zero value
	// applies DefaultPrecision. Pass NoRounding to keep full precision.
	Precision int
	// Weights pair with the filtered series for weighted_mean. Ignored unless
	// its length matches the filtered series.
	Weights []float64
}

// DefaultPrecision is applied when Options leave Precision at its zero value.
const DefaultPrecision = 2

// NoRounding disables result rounding when set as Options.Precision.
const NoRounding = -1

// Aggregate reduces series to a scalar under the given method.
// The series is sorted by year first; the filter is applied before any
// arithmetic. Returns nil when the filtered series is empty.
func Aggregate(series domain.TimeSeries, method Method, opts Options) *float64 {
	filtered := applyFilter(series.Sorted(), opts.Filter)
	if len(filtered) == 0 {
		return nil
	}

	var result float64
	switch method {
	case MethodSum:
		result = filtered.Sum()
	case MethodMean:
		if len(opts.Weights) == len(filtered) {
			result = weightedMean(filtered, opts.Weights)
		} else {
			result = filtered.Sum() / float64(len(filtered))
		}
	case MethodWeightedMean:
		if len(opts.Weights) == len(filtered) {
			result = weightedMean(filtered, opts.Weights)
		} else {
			// Weight mismatch degrades to arithmetic mean.
			result = filtered.Sum() / float64(len(filtered))
		}
	case MethodMin:
		result = filtered[0].Value
		for _, p := range filtered[1:] {
			if p.Value < result {
				result = p.Value
			}
		}
	case MethodMax:
		result = filtered[0].Value
		for _, p := range filtered[1:] {
			if p.Value > result {
				result = p.Value
			}
		}
	case MethodNPV:
		result = NetPresentValue(filtered, opts.DiscountRate)
	case MethodFirst:
		result = filtered[0].Value
	case MethodLast:
		result = filtered[len(filtered)-1].Value
	default:
		log.Printf("[aggregate] unknown method %q, returning nil", method)
		return nil
	}

	precision := opts.Precision
	if precision == 0 {
		precision = DefaultPrecision
	}
	result = Round(result, precision)
	return &result
}

// NetPresentValue discounts each point by (1+rate)^(-year) and sums.
// Negative years amplify pre-operational outflows: construction costs are not
// yet discounted back.
func NetPresentValue(series domain.TimeSeries, rate float64) float64 {
	var total float64
	for _, p := range series {
		total += p.Value / math.Pow(1+rate, float64(p.Year))
	}
	return total
}

// Round rounds v to precision decimal digits; zero or negative precision
// leaves v unchanged.
func Round(v float64, precision int) float64 {
	if precision <= 0 {
		return v
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// weightedMean computes weighted sum / sum of weights. A zero weight sum
// yields 0, not NaN.
func weightedMean(series domain.TimeSeries, weights []float64) float64 {
	var weightedSum, weightSum float64
	for i, p := range series {
		weightedSum += p.Value * weights[i]
		weightSum += weights[i]
	}
	if weightSum == 0 {
		return 0
	}
	return weightedSum / weightSum
}

// applyFilter keeps the points matching the named year-range predicate.
// An unknown filter passes the series through with a logged warning.
func applyFilter(series domain.TimeSeries, filter Filter) domain.TimeSeries {
	switch filter {
	case FilterAll, "":
		return series
	case FilterOperational:
		return keep(series, func(y int) bool { return y > 0 })
	case FilterConstruction:
		return keep(series, func(y int) bool { return y <= 0 })
	case FilterEarly:
		return keep(series, func(y int) bool { return y > 0 && y <= 5 })
	case FilterLate:
		return keep(series, func(y int) bool { return y > 15 })
	default:
		log.Printf("[aggregate] unknown filter %q, passing series through", filter)
		return series
	}
}

func keep(series domain.TimeSeries, pred func(year int) bool) domain.TimeSeries {
	var out domain.TimeSeries
	for _, p := range series {
		if pred(p.Year) {
			out = append(out, p)
		}
	}
	return out
}
