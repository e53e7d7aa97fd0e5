package metric

import (
	"fmt"

	"windfarm-finance-lab/internal/aggregate"
	"windfarm-finance-lab/internal/domain"
)

// DebtServiceCoverage builds the annual DSCR series: for each year with debt
// service > 0, max(0, netCashflow / debtService). Years with zero or missing
// debt service are excluded, not zero-filled.
func DebtServiceCoverage(netCashflow, debtService domain.TimeSeries) domain.TimeSeries {
	return coverageSeries(netCashflow, debtService)
}

// InterestCoverage builds the annual ICR series, analogous to DSCR with
// interest-only payments as the denominator.
func InterestCoverage(netCashflow, interestPayments domain.TimeSeries) domain.TimeSeries {
	return coverageSeries(netCashflow, interestPayments)
}

func coverageSeries(numerator, denominator domain.TimeSeries) domain.TimeSeries {
	num := numerator.ByYear()
	var out domain.TimeSeries
	for _, p := range denominator.Sorted() {
		if p.Value <= 0 {
			continue
		}
		ratio := num[p.Year] / p.Value
		if ratio < 0 {
			ratio = 0
		}
		out = append(out, domain.DataPoint{Year: p.Year, Value: ratio})
	}
	return out
}

// LoanLifeCoverage computes LLCR: NPV of operational net cash flow divided by
// the initial (year-0) outstanding debt balance. Zero debt is not a ratio;
// it reports as not applicable.
func LoanLifeCoverage(netCashflow domain.TimeSeries, discountRate, initialDebt float64) (float64, error) {
	if initialDebt == 0 {
		return 0, fmt.Errorf("%w: no outstanding debt, LLCR not applicable", domain.ErrMissingData)
	}
	operational := netCashflow.Operational()
	if len(operational) == 0 {
		return 0, fmt.Errorf("%w: no operational cash flows", domain.ErrMissingData)
	}
	npv := aggregate.NetPresentValue(operational, discountRate)
	return npv / initialDebt, nil
}

// LevelizedCostOfEnergy computes LCOE: NPV of total costs divided by NPV of
// energy production, both discounted at the same rate. A zero energy NPV is an
// error, not a silent divide-by-zero.
func LevelizedCostOfEnergy(totalCosts, energyProduction domain.TimeSeries, discountRate float64) (float64, error) {
	if len(totalCosts) == 0 {
		return 0, fmt.Errorf("%w: no cost series", domain.ErrMissingData)
	}
	if len(energyProduction) == 0 {
		return 0, fmt.Errorf("%w: no energy production series", domain.ErrMissingData)
	}
	costNPV := aggregate.NetPresentValue(totalCosts.Sorted(), discountRate)
	energyNPV := aggregate.NetPresentValue(energyProduction.Sorted(), discountRate)
	if energyNPV == 0 {
		return 0, fmt.Errorf("%w: discounted energy production is zero", domain.ErrCalculationFailed)
	}
	return costNPV / energyNPV, nil
}
