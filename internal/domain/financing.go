package domain

// FinancingConfig holds project financing parameters consumed by metric
// calculations. Loaded once at process start; read-only afterwards.
type FinancingConfig struct {
	// DiscountRate is the default rate for NPV-style discounting.
	DiscountRate float64 `yaml:"discount_rate"`

	// InitialDebt is the outstanding debt balance at year 0.
	InitialDebt float64 `yaml:"initial_debt"`

	// DebtService is the annual total debt service (principal + interest).
	DebtService TimeSeries `yaml:"-"`

	// InterestPayments is the annual interest-only portion of debt service.
	InterestPayments TimeSeries `yaml:"-"`

	// EquityDraws is the annual equity contribution schedule (construction years).
	EquityDraws TimeSeries `yaml:"-"`
}
