// Package registry holds the declarative metric and source catalogues.
// Build is a pure constructor: all configuration validation happens there and
// returns errors before any computation starts. Registries are read-only after
// construction and safe for concurrent reads by in-flight computations.
package registry

import (
	"fmt"
	"sort"

	"windfarm-finance-lab/internal/aggregate"
	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/extract"
)

// AggregationSpec binds a metric to its aggregation strategy. The spec is
// passed explicitly into Calculate so metric code never reaches back into the
// assembled registry.
type AggregationSpec struct {
	Method  aggregate.Method
	Options aggregate.Options
}

// Apply runs the spec against a series.
func (s AggregationSpec) Apply(series domain.TimeSeries) *float64 {
	return aggregate.Aggregate(series, s.Method, s.Options)
}

// CalcInput is everything one metric calculation may consume. Foundational
// metrics read Sources; analytical metrics read only Results of their declared
// dependencies.
type CalcInput struct {
	Sources   *extract.SourceSet
	Results   map[string]domain.MetricResult
	Financing domain.FinancingConfig
}

// Source returns the extracted series for a source id, or nil when absent.
func (in CalcInput) Source(id string) domain.TimeSeries {
	if in.Sources == nil {
		return nil
	}
	ts, _ := in.Sources.Get(id)
	return ts
}

// Dependency returns the declared dependency's result.
// A missing slot reads as a MissingData error result.
func (in CalcInput) Dependency(id string) domain.MetricResult {
	if r, ok := in.Results[id]; ok {
		return r
	}
	return domain.ErrorResult(fmt.Sprintf("dependency %s not computed", id))
}

// CalculateFunc computes one metric from its assembled input. The aggregation
// spec arrives as an explicit parameter.
type CalculateFunc func(in CalcInput, agg AggregationSpec) domain.MetricResult

// MetricDef is one catalogue entry.
type MetricDef struct {
	ID       string
	Category domain.MetricCategory
	// Priority breaks topological ties: foundational metrics occupy band 1-9,
	// analytical 10 and above.
	Priority     int
	DependsOn    []string
	Aggregation  AggregationSpec
	Calculate    CalculateFunc
	Format       func(float64) string
	FormatImpact func(float64) string
	Thresholds   domain.Thresholds
}

// Config assembles a Registry.
type Config struct {
	Metrics   []MetricDef
	Sources   []domain.SourceConfig
	Financing domain.FinancingConfig
}

// Registry is the validated, ordered catalogue of metrics and sources.
type Registry struct {
	metrics     map[string]MetricDef
	order       []string
	sources     []domain.SourceConfig
	sourceIndex map[string]domain.SourceConfig
	financing   domain.FinancingConfig
}

// Build validates the configuration and resolves compute order.
// Unknown ids, tier violations and cycles are fatal here, not at compute time.
func Build(cfg Config) (*Registry, error) {
	metrics := make(map[string]MetricDef, len(cfg.Metrics))
	for _, def := range cfg.Metrics {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: metric with empty id", domain.ErrValidation)
		}
		if _, exists := metrics[def.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate metric id %s", domain.ErrValidation, def.ID)
		}
		if !def.Category.IsValid() {
			return nil, fmt.Errorf("%w: metric %s has invalid category %q", domain.ErrValidation, def.ID, def.Category)
		}
		if def.Calculate == nil {
			return nil, fmt.Errorf("%w: metric %s has no calculation", domain.ErrValidation, def.ID)
		}
		if def.Category == domain.MetricFoundational && (def.Priority < 1 || def.Priority > 9) {
			return nil, fmt.Errorf("%w: foundational metric %s must have priority 1-9, got %d", domain.ErrValidation, def.ID, def.Priority)
		}
		if def.Category == domain.MetricAnalytical && def.Priority < 10 {
			return nil, fmt.Errorf("%w: analytical metric %s must have priority >= 10, got %d", domain.ErrValidation, def.ID, def.Priority)
		}
		metrics[def.ID] = def
	}

	for _, def := range cfg.Metrics {
		for _, dep := range def.DependsOn {
			target, ok := metrics[dep]
			if !ok {
				return nil, fmt.Errorf("%w: metric %s depends on unknown metric %s", domain.ErrDependency, def.ID, dep)
			}
			if target.Category != domain.MetricFoundational {
				return nil, fmt.Errorf("%w: metric %s depends on non-foundational metric %s", domain.ErrDependency, def.ID, dep)
			}
		}
	}

	order, err := resolveOrder(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	sources, sourceIndex, err := orderSources(cfg.Sources)
	if err != nil {
		return nil, err
	}

	return &Registry{
		metrics:     metrics,
		order:       order,
		sources:     sources,
		sourceIndex: sourceIndex,
		financing:   cfg.Financing,
	}, nil
}

// Metric returns the definition for an id.
func (r *Registry) Metric(id string) (MetricDef, error) {
	def, ok := r.metrics[id]
	if !ok {
		return MetricDef{}, fmt.Errorf("%w: %s", domain.ErrUnknownMetric, id)
	}
	return def, nil
}

// Order returns the resolved compute order: every metric's dependencies appear
// strictly before the metric itself.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Sources returns the source configs in safe extraction order (multiplier
// references resolve to earlier entries).
func (r *Registry) Sources() []domain.SourceConfig {
	out := make([]domain.SourceConfig, len(r.sources))
	copy(out, r.sources)
	return out
}

// SourceByID returns the source config for an id.
func (r *Registry) SourceByID(id string) (domain.SourceConfig, bool) {
	cfg, ok := r.sourceIndex[id]
	return cfg, ok
}

// Financing returns the financing configuration.
func (r *Registry) Financing() domain.FinancingConfig {
	return r.financing
}

// MetricIDs returns all metric ids in resolved order.
func (r *Registry) MetricIDs() []string {
	return r.Order()
}

// orderSources validates source configs and orders them so each multiplier
// reference points at an earlier source. A cycle among multipliers is fatal.
func orderSources(configs []domain.SourceConfig) ([]domain.SourceConfig, map[string]domain.SourceConfig, error) {
	index := make(map[string]domain.SourceConfig, len(configs))
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, nil, fmt.Errorf("%w: source with empty id", domain.ErrValidation)
		}
		if _, exists := index[cfg.ID]; exists {
			return nil, nil, fmt.Errorf("%w: duplicate source id %s", domain.ErrValidation, cfg.ID)
		}
		if !cfg.Category.IsValid() {
			return nil, nil, fmt.Errorf("%w: source %s has invalid category %q", domain.ErrValidation, cfg.ID, cfg.Category)
		}
		index[cfg.ID] = cfg
	}
	for _, cfg := range configs {
		for _, ref := range cfg.Multipliers {
			if _, ok := index[ref.SourceID]; !ok {
				return nil, nil, fmt.Errorf("%w: source %s references unknown multiplier source %s", domain.ErrDependency, cfg.ID, ref.SourceID)
			}
			if !ref.Operation.IsValid() {
				return nil, nil, fmt.Errorf("%w: source %s multiplier %s has invalid operation %q", domain.ErrValidation, cfg.ID, ref.SourceID, ref.Operation)
			}
		}
	}

	// Kahn's algorithm over multiplier edges, lexical tie-break for
	// deterministic extraction order.
	indegree := make(map[string]int, len(configs))
	dependents := make(map[string][]string)
	for _, cfg := range configs {
		indegree[cfg.ID] += 0
		for _, ref := range cfg.Multipliers {
			indegree[cfg.ID]++
			dependents[ref.SourceID] = append(dependents[ref.SourceID], cfg.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]domain.SourceConfig, 0, len(configs))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, index[id])
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}
	if len(ordered) != len(configs) {
		var cycle []string
		for id, deg := range indegree {
			if deg > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return nil, nil, fmt.Errorf("%w: cycle among source multipliers %v", domain.ErrDependency, cycle)
	}
	return ordered, index, nil
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
