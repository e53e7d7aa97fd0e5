package registry

import (
	"fmt"

	"windfarm-finance-lab/internal/aggregate"
	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/metric"
)

// Well-known metric ids of the standard catalogue.
const (
	MetricNetCashflow = "net_cashflow"
	MetricTotalCosts  = "total_costs"
	MetricEnergyYield = "energy_yield"
	MetricDSCRSeries  = "dscr_series"
	MetricICRSeries   = "icr_series"

	MetricNPV       = "npv"
	MetricIRR       = "irr"
	MetricEquityIRR = "equity_irr"
	MetricPayback   = "payback_period"
	MetricAvgDSCR   = "avg_dscr"
	MetricMinDSCR   = "min_dscr"
	MetricAvgICR    = "avg_icr"
	MetricLLCR      = "llcr"
	MetricLCOE      = "lcoe"
)

// BuiltinMetrics assembles the standard wind-farm metric catalogue over the
// given source configuration. Foundational metrics (priority 1-9) read
// extracted sources by category; analytical metrics (10+) consume only
// foundational results.
func BuiltinMetrics(sources []domain.SourceConfig) []MetricDef {
	var revenueIDs, costIDs, energyIDs []string
	for _, src := range sources {
		switch src.Category {
		case domain.SourceRevenue:
			revenueIDs = append(revenueIDs, src.ID)
		case domain.SourceCost:
			costIDs = append(costIDs, src.ID)
		}
		if src.ID == SourceEnergyProduction {
			energyIDs = append(energyIDs, src.ID)
		}
	}

	return []MetricDef{
		{
			ID:       MetricNetCashflow,
			Category: domain.MetricFoundational,
			Priority: 1,
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				ncf := sumByYear(in, revenueIDs, costIDs)
				if len(ncf) == 0 {
					return domain.ErrorResult("no cash-flow sources extracted")
				}
				return domain.SeriesResult(ncf)
			},
			Format:       metric.FormatCurrency,
			FormatImpact: metric.FormatImpact,
		},
		{
			ID:       MetricTotalCosts,
			Category: domain.MetricFoundational,
			Priority: 2,
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				costs := sumByYear(in, costIDs, nil)
				if len(costs) == 0 {
					return domain.ErrorResult("no cost sources extracted")
				}
				return domain.SeriesResult(costs)
			},
			Format:       metric.FormatCurrency,
			FormatImpact: metric.FormatImpact,
		},
		{
			ID:       MetricEnergyYield,
			Category: domain.MetricFoundational,
			Priority: 3,
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				yield := sumByYear(in, energyIDs, nil)
				if len(yield) == 0 {
					return domain.ErrorResult("no energy production source extracted")
				}
				return domain.SeriesResult(yield)
			},
			Format:       metric.FormatEnergy,
			FormatImpact: metric.FormatImpact,
		},
		{
			ID:       MetricDSCRSeries,
			Category: domain.MetricFoundational,
			Priority: 4,
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				ncf := sumByYear(in, revenueIDs, costIDs)
				series := metric.DebtServiceCoverage(ncf, in.Financing.DebtService)
				if len(series) == 0 {
					return domain.ErrorResult("no years with positive debt service")
				}
				return domain.SeriesResult(series)
			},
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
		},
		{
			ID:       MetricICRSeries,
			Category: domain.MetricFoundational,
			Priority: 5,
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				ncf := sumByYear(in, revenueIDs, costIDs)
				series := metric.InterestCoverage(ncf, in.Financing.InterestPayments)
				if len(series) == 0 {
					return domain.ErrorResult("no years with positive interest payments")
				}
				return domain.SeriesResult(series)
			},
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
		},

		{
			ID:        MetricNPV,
			Category:  domain.MetricAnalytical,
			Priority:  10,
			DependsOn: []string{MetricNetCashflow},
			Aggregation: AggregationSpec{
				Method:  aggregate.MethodNPV,
				Options: aggregate.Options{Filter: aggregate.FilterAll, Precision: aggregate.DefaultPrecision},
			},
			Calculate: func(in CalcInput, agg AggregationSpec) domain.MetricResult {
				dep := in.Dependency(MetricNetCashflow)
				if !dep.OK() {
					return domain.ErrorResult(dep.Err)
				}
				opts := agg.Options
				if opts.DiscountRate == 0 {
					opts.DiscountRate = in.Financing.DiscountRate
				}
				v := aggregate.Aggregate(dep.Series, agg.Method, opts)
				if v == nil {
					return domain.ErrorResult("empty net cash-flow series")
				}
				return domain.ScalarResult(*v)
			},
			Format:       metric.FormatCurrency,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 0, Warn: 0, HigherIsBetter: true},
		},
		{
			ID:        MetricIRR,
			Category:  domain.MetricAnalytical,
			Priority:  11,
			DependsOn: []string{MetricNetCashflow},
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				dep := in.Dependency(MetricNetCashflow)
				if !dep.OK() {
					return domain.ErrorResult(dep.Err)
				}
				rate, err := metric.InternalRateOfReturn(dep.Series)
				if err != nil {
					return domain.ErrorResult(err.Error())
				}
				return domain.ScalarResult(rate)
			},
			Format:       metric.FormatPercent,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 0.08, Warn: 0.05, HigherIsBetter: true},
		},
		{
			ID:        MetricEquityIRR,
			Category:  domain.MetricAnalytical,
			Priority:  12,
			DependsOn: []string{MetricNetCashflow},
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				dep := in.Dependency(MetricNetCashflow)
				if !dep.OK() {
					return domain.ErrorResult(dep.Err)
				}
				equity := metric.EquityCashFlow(dep.Series, in.Financing.DebtService, in.Financing.EquityDraws)
				rate, err := metric.InternalRateOfReturn(equity)
				if err != nil {
					return domain.ErrorResult(err.Error())
				}
				return domain.ScalarResult(rate)
			},
			Format:       metric.FormatPercent,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 0.12, Warn: 0.08, HigherIsBetter: true},
		},
		{
			ID:        MetricPayback,
			Category:  domain.MetricAnalytical,
			Priority:  13,
			DependsOn: []string{MetricNetCashflow},
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				dep := in.Dependency(MetricNetCashflow)
				if !dep.OK() {
					return domain.ErrorResult(dep.Err)
				}
				years, err := metric.PaybackPeriod(dep.Series)
				if err != nil {
					return domain.ErrorResult(err.Error())
				}
				return domain.ScalarResult(years)
			},
			Format:       metric.FormatYears,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 10, Warn: 15, HigherIsBetter: false},
		},
		{
			ID:        MetricAvgDSCR,
			Category:  domain.MetricAnalytical,
			Priority:  14,
			DependsOn: []string{MetricDSCRSeries},
			Aggregation: AggregationSpec{
				Method:  aggregate.MethodMean,
				Options: aggregate.Options{Filter: aggregate.FilterOperational, Precision: aggregate.DefaultPrecision},
			},
			Calculate:    aggregateDependency(MetricDSCRSeries),
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 1.3, Warn: 1.1, HigherIsBetter: true},
		},
		{
			ID:        MetricMinDSCR,
			Category:  domain.MetricAnalytical,
			Priority:  15,
			DependsOn: []string{MetricDSCRSeries},
			Aggregation: AggregationSpec{
				Method:  aggregate.MethodMin,
				Options: aggregate.Options{Filter: aggregate.FilterOperational, Precision: aggregate.DefaultPrecision},
			},
			Calculate:    aggregateDependency(MetricDSCRSeries),
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 1.1, Warn: 1.0, HigherIsBetter: true},
		},
		{
			ID:        MetricAvgICR,
			Category:  domain.MetricAnalytical,
			Priority:  16,
			DependsOn: []string{MetricICRSeries},
			Aggregation: AggregationSpec{
				Method:  aggregate.MethodMean,
				Options: aggregate.Options{Filter: aggregate.FilterOperational, Precision: aggregate.DefaultPrecision},
			},
			Calculate:    aggregateDependency(MetricICRSeries),
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 2.0, Warn: 1.5, HigherIsBetter: true},
		},
		{
			ID:        MetricLLCR,
			Category:  domain.MetricAnalytical,
			Priority:  17,
			DependsOn: []string{MetricNetCashflow},
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				dep := in.Dependency(MetricNetCashflow)
				if !dep.OK() {
					return domain.ErrorResult(dep.Err)
				}
				ratio, err := metric.LoanLifeCoverage(dep.Series, in.Financing.DiscountRate, in.Financing.InitialDebt)
				if err != nil {
					return domain.ErrorResult(err.Error())
				}
				return domain.ScalarResult(aggregate.Round(ratio, aggregate.DefaultPrecision))
			},
			Format:       metric.FormatRatio,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 1.4, Warn: 1.2, HigherIsBetter: true},
		},
		{
			ID:        MetricLCOE,
			Category:  domain.MetricAnalytical,
			Priority:  18,
			DependsOn: []string{MetricTotalCosts, MetricEnergyYield},
			Calculate: func(in CalcInput, _ AggregationSpec) domain.MetricResult {
				costs := in.Dependency(MetricTotalCosts)
				if !costs.OK() {
					return domain.ErrorResult(costs.Err)
				}
				energy := in.Dependency(MetricEnergyYield)
				if !energy.OK() {
					return domain.ErrorResult(energy.Err)
				}
				lcoe, err := metric.LevelizedCostOfEnergy(costs.Series, energy.Series, in.Financing.DiscountRate)
				if err != nil {
					return domain.ErrorResult(err.Error())
				}
				return domain.ScalarResult(aggregate.Round(lcoe, aggregate.DefaultPrecision))
			},
			Format:       metric.FormatPerMWh,
			FormatImpact: metric.FormatImpact,
			Thresholds:   domain.Thresholds{Good: 60, Warn: 80, HigherIsBetter: false},
		},
	}
}

// aggregateDependency builds a calculation that applies the metric's own
// aggregation spec to one foundational series dependency.
func aggregateDependency(depID string) CalculateFunc {
	return func(in CalcInput, agg AggregationSpec) domain.MetricResult {
		dep := in.Dependency(depID)
		if !dep.OK() {
			return domain.ErrorResult(dep.Err)
		}
		v := agg.Apply(dep.Series)
		if v == nil {
			return domain.ErrorResult(fmt.Sprintf("no data in %s after filtering", depID))
		}
		return domain.ScalarResult(*v)
	}
}

// sumByYear adds the yearly values of the add sources and subtracts the
// subtract sources. Sources that were not extracted contribute nothing.
func sumByYear(in CalcInput, add, subtract []string) domain.TimeSeries {
	byYear := make(map[int]float64)
	for _, id := range add {
		for _, p := range in.Source(id) {
			byYear[p.Year] += p.Value
		}
	}
	for _, id := range subtract {
		for _, p := range in.Source(id) {
			byYear[p.Year] -= p.Value
		}
	}
	out := make(domain.TimeSeries, 0, len(byYear))
	for year, value := range byYear {
		out = append(out, domain.DataPoint{Year: year, Value: value})
	}
	return out.Sorted()
}
