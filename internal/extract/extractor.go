// Package extract resolves configured data sources into canonical time series.
// A source is either percentile-bearing (raw data is a set of percentile-indexed
// result series, one selected per scenario) or transformed (a named function
// converts raw records into a series). Declared multiplier chains apply after
// resolution, in declaration order.
package extract

import (
	"fmt"
	"log"
	"math"
	"sort"

	"windfarm-finance-lab/internal/domain"
)

// Accessor fetches raw configuration or result data by path.
// Implementations return nil when the path is absent and never fail.
type Accessor interface {
	GetValueByPath(path []string) any
}

// Extractor resolves sources against one accessor. The transformer table is
// read-only after construction; per-pass state lives in SourceSet.
type Extractor struct {
	accessor     Accessor
	transformers map[string]TransformerFunc
	verbose      bool
}

// New creates an Extractor with the built-in transformer table.
func New(accessor Accessor) *Extractor {
	return &Extractor{
		accessor:     accessor,
		transformers: builtinTransformers(),
	}
}

// RegisterTransformer adds or replaces a named transformer. Intended for
// collaborator-supplied converters; call before any extraction pass.
func (e *Extractor) RegisterTransformer(name string, fn TransformerFunc) {
	e.transformers[name] = fn
}

// SourceSet is the per-pass working set: each source extracted at most once.
// A set belongs to exactly one computation pass and is never shared.
type SourceSet struct {
	series map[string]domain.TimeSeries
}

// NewSourceSet creates an empty working set.
func NewSourceSet() *SourceSet {
	return &SourceSet{series: make(map[string]domain.TimeSeries)}
}

// Get returns the cached series for a source id.
func (s *SourceSet) Get(id string) (domain.TimeSeries, bool) {
	ts, ok := s.series[id]
	return ts, ok
}

// Put caches an extracted series.
func (s *SourceSet) Put(id string, ts domain.TimeSeries) {
	s.series[id] = ts
}

// IDs returns the cached source ids in lexical order.
func (s *SourceSet) IDs() []string {
	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExtractAll resolves every configured source under the given scenario into a
// fresh SourceSet. Sources are processed in config order so multiplier
// references resolve to already-extracted sources.
func (e *Extractor) ExtractAll(configs []domain.SourceConfig, scenario domain.PercentileScenario) *SourceSet {
	set := NewSourceSet()
	for _, cfg := range configs {
		set.Put(cfg.ID, e.Extract(cfg, scenario, set))
	}
	return set
}

// Extract resolves one source into a canonical sorted series and applies its
// multiplier chain. An unresolvable multiplier is logged and skipped rather
// than aborting the source.
func (e *Extractor) Extract(cfg domain.SourceConfig, scenario domain.PercentileScenario, set *SourceSet) domain.TimeSeries {
	var series domain.TimeSeries
	if cfg.HasPercentiles {
		series = e.extractPercentile(cfg, scenario)
	} else {
		series = e.extractTransformed(cfg)
	}
	series = series.Sorted()

	for _, ref := range cfg.Multipliers {
		multiplier, ok := set.Get(ref.SourceID)
		if !ok {
			log.Printf("[extract] source %s: multiplier %s not extracted yet, skipping", cfg.ID, ref.SourceID)
			continue
		}
		series = ApplyMultiplier(series, multiplier, ref)
	}
	return series
}

// extractPercentile selects the series matching the percentile assigned to
// this source under the active scenario, falling back to the first available
// percentile when unset.
func (e *Extractor) extractPercentile(cfg domain.SourceConfig, scenario domain.PercentileScenario) domain.TimeSeries {
	raw := e.accessor.GetValueByPath(cfg.Path)
	byPercentile := coercePercentileSet(raw)
	if len(byPercentile) == 0 {
		log.Printf("[extract] source %s: no percentile data at path %v", cfg.ID, cfg.Path)
		return nil
	}

	if p, ok := scenario.PercentileFor(cfg.ID); ok {
		if ts, ok := byPercentile[p]; ok {
			return ts.Clone()
		}
		log.Printf("[extract] source %s: percentile %v absent, falling back to first available", cfg.ID, p)
	}

	percentiles := make([]float64, 0, len(byPercentile))
	for p := range byPercentile {
		percentiles = append(percentiles, p)
	}
	sort.Float64s(percentiles)
	return byPercentile[percentiles[0]].Clone()
}

// extractTransformed runs the named transformer, or interprets the raw value
// directly as a series or constant when no transformer is declared.
func (e *Extractor) extractTransformed(cfg domain.SourceConfig) domain.TimeSeries {
	raw := e.accessor.GetValueByPath(cfg.Path)
	if raw == nil {
		log.Printf("[extract] source %s: no data at path %v", cfg.ID, cfg.Path)
		return nil
	}

	if cfg.Transformer != "" {
		fn, ok := e.transformers[cfg.Transformer]
		if !ok {
			log.Printf("[extract] source %s: unknown transformer %q", cfg.ID, cfg.Transformer)
			return nil
		}
		series, err := fn(raw)
		if err != nil {
			log.Printf("[extract] source %s: transformer %q: %v", cfg.ID, cfg.Transformer, err)
			return nil
		}
		return series
	}

	series, err := coerceSeries(raw)
	if err != nil {
		log.Printf("[extract] source %s: %v", cfg.ID, err)
		return nil
	}
	return series
}

// ApplyMultiplier combines series with multiplier point-wise by year.
// multiply: year-for-year product, missing years contribute a neutral 1.
// compound: multiplier^(year-baseYear) then multiply, modeling escalation
// compounding from the base year forward.
func ApplyMultiplier(series, multiplier domain.TimeSeries, ref domain.MultiplierRef) domain.TimeSeries {
	byYear := multiplier.ByYear()
	out := make(domain.TimeSeries, 0, len(series))
	for _, p := range series {
		factor, ok := byYear[p.Year]
		if !ok {
			factor = 1
		}
		switch ref.Operation {
		case domain.OpCompound:
			factor = math.Pow(factor, float64(p.Year-ref.BaseYear))
		case domain.OpMultiply:
			// factor used as-is
		default:
			log.Printf("[extract] unknown multiplier operation %q, treating as multiply", ref.Operation)
		}
		out = append(out, domain.DataPoint{Year: p.Year, Value: p.Value * factor})
	}
	return out
}

// coercePercentileSet converts accessor output into percentile-indexed series.
func coercePercentileSet(raw any) map[float64]domain.TimeSeries {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[float64]domain.TimeSeries:
		return v
	case map[float64][]domain.DataPoint:
		out := make(map[float64]domain.TimeSeries, len(v))
		for p, pts := range v {
			out[p] = domain.TimeSeries(pts)
		}
		return out
	}
	return nil
}

// coerceSeries interprets a raw value directly as a series or a constant.
// A bare number becomes a single year-1 point.
func coerceSeries(raw any) (domain.TimeSeries, error) {
	switch v := raw.(type) {
	case domain.TimeSeries:
		return v.Clone(), nil
	case []domain.DataPoint:
		return domain.TimeSeries(v).Clone(), nil
	case float64:
		return domain.TimeSeries{{Year: 1, Value: v}}, nil
	case int:
		return domain.TimeSeries{{Year: 1, Value: float64(v)}}, nil
	}
	return nil, fmt.Errorf("%w: cannot interpret %T as time series", domain.ErrInvalidData, raw)
}
