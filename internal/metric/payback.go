package metric

import (
	"fmt"
	"math"

	"windfarm-finance-lab/internal/domain"
)

// PaybackPeriod walks the cash flows chronologically accumulating net cash
// flow and linearly interpolates between the last negative-cumulative year and
// the first non-negative year:
//
//	paybackYear = prevYear + |prevCumulative| / valueAtCrossingYear
//
// A cumulative total that never turns non-negative is an error, not a
// sentinel value.
func PaybackPeriod(netCashflow domain.TimeSeries) (float64, error) {
	sorted := netCashflow.Sorted()
	if len(sorted) == 0 {
		return 0, fmt.Errorf("%w: empty cash-flow series", domain.ErrMissingData)
	}

	var cumulative float64
	prevYear := sorted[0].Year
	prevCumulative := 0.0
	for i, p := range sorted {
		cumulative += p.Value
		if cumulative >= 0 {
			if i == 0 {
				// Non-negative from the first point: payback at that year.
				return float64(p.Year), nil
			}
			if p.Value == 0 {
				return float64(p.Year), nil
			}
			return float64(prevYear) + math.Abs(prevCumulative)/p.Value, nil
		}
		prevYear = p.Year
		prevCumulative = cumulative
	}
	return 0, fmt.Errorf("%w: cumulative cash flow never turns non-negative", domain.ErrCalculationFailed)
}
