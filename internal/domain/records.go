package domain

// Raw record shapes consumed by source transformers. These mirror what the
// scenario persistence layer hands over; the engine never mutates them.

// ContractRecord is one offtake contract: a fixed price applied to contracted
// annual volume over [StartYear, EndYear].
type ContractRecord struct {
	ID          string  `yaml:"id"`
	StartYear   int     `yaml:"start_year"`
	EndYear     int     `yaml:"end_year"`
	PricePerMWh float64 `yaml:"price_per_mwh"`
	AnnualMWh   float64 `yaml:"annual_mwh"`
}

// RepairEvent is one scheduled major repair or component exchange.
type RepairEvent struct {
	Year int     `yaml:"year"`
	Cost float64 `yaml:"cost"`
}

// DrawdownSchedule spreads a total capital amount over construction years by
// fraction. Fractions are normalized by their sum, so partial schedules still
// allocate the full amount.
type DrawdownSchedule struct {
	Total     float64         `yaml:"total"`
	Fractions map[int]float64 `yaml:"fractions"` // year -> fraction
}
