package registry

// Well-known source ids referenced by the built-in metric catalogue and the
// default configuration. Scenario configuration may declare additional
// sources; only EnergyProduction carries special meaning (LCOE denominator).
const (
	SourceEnergyProduction = "energy_production"
	SourceMarketRevenue    = "market_revenue"
	SourceContractRevenue  = "contract_revenue"
	SourceOperatingCosts   = "operating_costs"
	SourceMaintenanceCosts = "maintenance_costs"
	SourceRepairCosts      = "repair_costs"
	SourceCapexDrawdown    = "capex_drawdown"
	SourcePriceEscalation  = "price_escalation"
	SourceAvailability     = "availability"
)
