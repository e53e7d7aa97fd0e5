// Package metric implements the project-finance metric algorithms: IRR, DSCR,
// ICR, LCOE, LLCR and payback. All functions are pure and deterministic;
// numerical failures surface as errors, never as wrong values.
package metric

import (
	"fmt"
	"math"

	"windfarm-finance-lab/internal/aggregate"
	"windfarm-finance-lab/internal/domain"
)

const (
	irrTolerance = 1e-6
	irrMaxIter   = 200
)

// InternalRateOfReturn solves for the discount rate at which the series' NPV
// is zero. Newton-Raphson first, bisection fallback when the derivative
// misbehaves. Non-convergence is an error, never an approximate answer.
func InternalRateOfReturn(series domain.TimeSeries) (float64, error) {
	sorted := series.Sorted()
	if len(sorted) == 0 {
		return 0, fmt.Errorf("%w: empty cash-flow series", domain.ErrMissingData)
	}
	if !hasSignChange(sorted) {
		return 0, fmt.Errorf("%w: cash flows never change sign, IRR undefined", domain.ErrCalculationFailed)
	}

	if rate, ok := newtonIRR(sorted); ok {
		return rate, nil
	}
	if rate, ok := bisectIRR(sorted); ok {
		return rate, nil
	}
	return 0, fmt.Errorf("%w: IRR did not converge within %d iterations", domain.ErrCalculationFailed, irrMaxIter)
}

func hasSignChange(series domain.TimeSeries) bool {
	var seenPositive, seenNegative bool
	for _, p := range series {
		if p.Value > 0 {
			seenPositive = true
		}
		if p.Value < 0 {
			seenNegative = true
		}
	}
	return seenPositive && seenNegative
}

func newtonIRR(series domain.TimeSeries) (float64, bool) {
	rate := 0.1
	for i := 0; i < irrMaxIter; i++ {
		npv := aggregate.NetPresentValue(series, rate)
		if math.Abs(npv) <= irrTolerance {
			return rate, true
		}
		deriv := npvDerivative(series, rate)
		if deriv == 0 || math.IsNaN(deriv) || math.IsInf(deriv, 0) {
			return 0, false
		}
		next := rate - npv/deriv
		// Keep the iterate inside the valid domain (rate > -1).
		if next <= -1 || math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if math.Abs(next-rate) < irrTolerance && math.Abs(aggregate.NetPresentValue(series, next)) <= irrTolerance {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func npvDerivative(series domain.TimeSeries, rate float64) float64 {
	var d float64
	for _, p := range series {
		d += -float64(p.Year) * p.Value / math.Pow(1+rate, float64(p.Year)+1)
	}
	return d
}

// bisectIRR searches for a bracketing interval in (-0.99, 10) and bisects it.
func bisectIRR(series domain.TimeSeries) (float64, bool) {
	lo, hi := -0.99, 10.0
	fLo := aggregate.NetPresentValue(series, lo)
	fHi := aggregate.NetPresentValue(series, hi)
	if fLo*fHi > 0 {
		return 0, false
	}
	for i := 0; i < irrMaxIter; i++ {
		mid := (lo + hi) / 2
		fMid := aggregate.NetPresentValue(series, mid)
		if math.Abs(fMid) <= irrTolerance {
			return mid, true
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}
	return 0, false
}

// EquityCashFlow derives the equity holders' cash-flow series: net cash flow
// minus debt service minus equity draws, year-for-year. Years present in any
// input appear in the result.
func EquityCashFlow(netCashflow, debtService, equityDraws domain.TimeSeries) domain.TimeSeries {
	years := make(map[int]struct{})
	for _, ts := range []domain.TimeSeries{netCashflow, debtService, equityDraws} {
		for _, p := range ts {
			years[p.Year] = struct{}{}
		}
	}
	ncf := netCashflow.ByYear()
	ds := debtService.ByYear()
	eq := equityDraws.ByYear()

	out := make(domain.TimeSeries, 0, len(years))
	for year := range years {
		out = append(out, domain.DataPoint{Year: year, Value: ncf[year] - ds[year] - eq[year]})
	}
	return out.Sorted()
}
