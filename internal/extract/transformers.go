package extract

import (
	"fmt"
	"sort"

	"windfarm-finance-lab/internal/domain"
)

// TransformerFunc converts source-specific raw records into a TimeSeries.
// Transformers are external collaborators keyed by name; the built-ins below
// cover the standard scenario record shapes.
type TransformerFunc func(raw any) (domain.TimeSeries, error)

// Built-in transformer names.
const (
	TransformerContractRevenue  = "contract_revenue"
	TransformerRepairCosts      = "repair_costs"
	TransformerDrawdownSchedule = "drawdown_schedule"
	TransformerFixedAnnual      = "fixed_annual"
)

func builtinTransformers() map[string]TransformerFunc {
	return map[string]TransformerFunc{
		TransformerContractRevenue:  ContractRevenue,
		TransformerRepairCosts:      RepairCosts,
		TransformerDrawdownSchedule: Drawdown,
		TransformerFixedAnnual:      FixedAnnual,
	}
}

// ContractRevenue expands offtake contracts into annual revenue: for each
// contract, price * volume over [StartYear, EndYear]. Overlapping contracts sum.
func ContractRevenue(raw any) (domain.TimeSeries, error) {
	contracts, ok := raw.([]domain.ContractRecord)
	if !ok {
		return nil, fmt.Errorf("%w: expected []ContractRecord, got %T", domain.ErrInvalidData, raw)
	}
	byYear := make(map[int]float64)
	for _, c := range contracts {
		if c.EndYear < c.StartYear {
			return nil, fmt.Errorf("%w: contract %s ends before it starts", domain.ErrInvalidData, c.ID)
		}
		for year := c.StartYear; year <= c.EndYear; year++ {
			byYear[year] += c.PricePerMWh * c.AnnualMWh
		}
	}
	return seriesFromMap(byYear), nil
}

// RepairCosts converts scheduled repair events into an annual cost series.
// Multiple events in one year sum.
func RepairCosts(raw any) (domain.TimeSeries, error) {
	events, ok := raw.([]domain.RepairEvent)
	if !ok {
		return nil, fmt.Errorf("%w: expected []RepairEvent, got %T", domain.ErrInvalidData, raw)
	}
	byYear := make(map[int]float64)
	for _, ev := range events {
		byYear[ev.Year] += ev.Cost
	}
	return seriesFromMap(byYear), nil
}

// Drawdown spreads a capital total over construction years by normalized
// fractions.
func Drawdown(raw any) (domain.TimeSeries, error) {
	sched, ok := raw.(domain.DrawdownSchedule)
	if !ok {
		return nil, fmt.Errorf("%w: expected DrawdownSchedule, got %T", domain.ErrInvalidData, raw)
	}
	var fractionSum float64
	for _, f := range sched.Fractions {
		fractionSum += f
	}
	if fractionSum == 0 {
		return nil, fmt.Errorf("%w: drawdown fractions sum to zero", domain.ErrInvalidData)
	}
	byYear := make(map[int]float64, len(sched.Fractions))
	for year, f := range sched.Fractions {
		byYear[year] = sched.Total * f / fractionSum
	}
	return seriesFromMap(byYear), nil
}

// FixedAnnual repeats a fixed value over an explicit year range given as
// map keys "value", "start_year", "end_year".
func FixedAnnual(raw any) (domain.TimeSeries, error) {
	fields, ok := raw.(map[string]float64)
	if !ok {
		return nil, fmt.Errorf("%w: expected map[string]float64, got %T", domain.ErrInvalidData, raw)
	}
	value := fields["value"]
	start := int(fields["start_year"])
	end := int(fields["end_year"])
	if end < start {
		return nil, fmt.Errorf("%w: fixed annual range ends before it starts", domain.ErrInvalidData)
	}
	out := make(domain.TimeSeries, 0, end-start+1)
	for year := start; year <= end; year++ {
		out = append(out, domain.DataPoint{Year: year, Value: value})
	}
	return out, nil
}

func seriesFromMap(byYear map[int]float64) domain.TimeSeries {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	out := make(domain.TimeSeries, 0, len(years))
	for _, y := range years {
		out = append(out, domain.DataPoint{Year: y, Value: byYear[y]})
	}
	return out
}
