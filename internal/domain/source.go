package domain

// SourceCategory classifies a configured data source.
type SourceCategory string

const (
	SourceCost       SourceCategory = "cost"
	SourceRevenue    SourceCategory = "revenue"
	SourceMultiplier SourceCategory = "multiplier"
)

// IsValid checks if the category is a valid value.
func (c SourceCategory) IsValid() bool {
	return c == SourceCost || c == SourceRevenue || c == SourceMultiplier
}

// String returns the string representation of SourceCategory.
func (c SourceCategory) String() string {
	return string(c)
}

// MultiplierOp is how a multiplier source combines with its target series.
type MultiplierOp string

const (
	// OpMultiply multiplies values year-for-year; a missing year on either
	// side contributes a neutral 1.
	OpMultiply MultiplierOp = "multiply"
	// OpCompound raises the multiplier value to the power of (year - baseYear)
	// before multiplying, modeling escalation compounding from a base year.
	OpCompound MultiplierOp = "compound"
)

// IsValid checks if the operation is a valid value.
func (op MultiplierOp) IsValid() bool {
	return op == OpMultiply || op == OpCompound
}

// MultiplierRef declares one multiplier applied to an extracted source.
// SourceID must resolve to another already-extracted source; multipliers may
// not form cycles among themselves.
type MultiplierRef struct {
	SourceID  string       `yaml:"source_id"`
	Operation MultiplierOp `yaml:"operation"`
	BaseYear  int          `yaml:"base_year"`
}

// SourceConfig describes one data source feeding metric computation.
type SourceConfig struct {
	ID       string         `yaml:"id"`
	Path     []string       `yaml:"path"`
	Category SourceCategory `yaml:"category"`

	// HasPercentiles marks sources whose raw data is a set of
	// percentile-indexed result series.
	HasPercentiles bool `yaml:"has_percentiles"`

	// Transformer names the registered function converting source-specific raw
	// records into a TimeSeries. Empty means the raw value is interpreted
	// directly as a series or constant.
	Transformer string `yaml:"transformer"`

	Multipliers []MultiplierRef `yaml:"multipliers"`
}
