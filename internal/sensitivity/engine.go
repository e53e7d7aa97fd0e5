// Package sensitivity estimates how moving one upstream variable to another
// percentile shifts each target metric, relative to a baseline where
// everything else stays put. The estimates are proportional scalings of the
// baseline metric value, not full pipeline re-runs; the scaling rules are a
// calibrated approximation.
package sensitivity

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/extract"
	"windfarm-finance-lab/internal/processor"
	"windfarm-finance-lab/internal/registry"
)

// Damping factors applied to the proportional change before scaling the
// baseline value. Coverage ratios and rates react less than linearly to a
// single line item moving; currency metrics pass through.
const (
	dampCurrency      = 1.0
	dampRate          = 0.7
	dampRatio         = 0.5
	dampRecalculation = 0.5
)

// Engine builds sensitivity cubes against one registry and accessor.
type Engine struct {
	registry *registry.Registry
	accessor extract.Accessor
	verbose  bool
}

// New creates an Engine.
func New(reg *registry.Registry, accessor extract.Accessor) *Engine {
	return &Engine{registry: reg, accessor: accessor}
}

// SetVerbose enables per-cell logging.
func (e *Engine) SetVerbose(v bool) {
	e.verbose = v
}

// BuildCube estimates each target metric under "this one variable moved to
// this percentile, everything else at baseline", for every (variable,
// candidate percentile) combination. The baseline percentile itself is
// excluded from the impact set. The returned cube is owned by the caller.
func (e *Engine) BuildCube(ctx context.Context, variables []domain.SensitivityVariable, targetMetrics []string, baselinePercentile float64, percentiles []float64) (*domain.SensitivityCube, error) {
	for _, id := range targetMetrics {
		if _, err := e.registry.Metric(id); err != nil {
			return nil, err
		}
	}
	for _, v := range variables {
		if !v.Kind.IsValid() {
			return nil, fmt.Errorf("%w: variable %s has invalid kind %q", domain.ErrValidation, v.ID, v.Kind)
		}
		if v.Kind == domain.VariableDirect {
			if _, ok := e.registry.SourceByID(v.SourceID); !ok {
				return nil, fmt.Errorf("%w: %s (variable %s)", domain.ErrUnknownVariable, v.SourceID, v.ID)
			}
		}
		for _, affected := range v.Affects {
			if _, ok := e.registry.SourceByID(affected); !ok {
				return nil, fmt.Errorf("%w: %s (affected by variable %s)", domain.ErrUnknownVariable, affected, v.ID)
			}
		}
	}

	baseline, err := e.baselineValues(ctx, targetMetrics, baselinePercentile)
	if err != nil {
		return nil, err
	}

	candidates := make([]float64, 0, len(percentiles))
	for _, p := range percentiles {
		if p != baselinePercentile {
			candidates = append(candidates, p)
		}
	}
	sort.Float64s(candidates)

	// One extraction pass per percentile, shared across variables.
	sets := map[float64]*extract.SourceSet{
		baselinePercentile: e.extractAt(baselinePercentile),
	}
	for _, p := range candidates {
		sets[p] = e.extractAt(p)
	}

	cube := &domain.SensitivityCube{BaselinePercentile: baselinePercentile}
	for _, variable := range variables {
		for _, metricID := range targetMetrics {
			base, ok := baseline[metricID]
			if !ok {
				log.Printf("[sensitivity] metric %s has no baseline scalar, skipping cell", metricID)
				continue
			}
			def, _ := e.registry.Metric(metricID)
			cell := domain.SensitivityCell{
				VariableID: variable.ID,
				MetricID:   metricID,
				BaseValue:  base,
				Impacts:    make(map[float64]float64, len(candidates)),
			}
			for _, p := range candidates {
				estimate, ok := e.estimate(variable, def, base, baselinePercentile, p, sets)
				if !ok {
					continue
				}
				cell.Impacts[p] = estimate
			}
			cube.Cells = append(cube.Cells, cell)
		}
	}
	return cube, nil
}

// baselineValues runs one full processor pass at the baseline percentile and
// keeps the scalar results of the target metrics.
func (e *Engine) baselineValues(ctx context.Context, targetMetrics []string, baselinePercentile float64) (map[string]float64, error) {
	proc := processor.New(processor.Options{Registry: e.registry, Accessor: e.accessor})
	batch, err := proc.ComputeAll(ctx, []domain.PercentileScenario{domain.UnifiedScenario(baselinePercentile)})
	if err != nil {
		return nil, fmt.Errorf("baseline pass: %w", err)
	}
	out := make(map[string]float64, len(targetMetrics))
	for _, id := range targetMetrics {
		if res, ok := batch.Scenarios[0].Results[id]; ok && res.HasValue() {
			out[id] = *res.Value
		}
	}
	return out, nil
}

func (e *Engine) extractAt(percentile float64) *extract.SourceSet {
	ex := extract.New(e.accessor)
	return ex.ExtractAll(e.registry.Sources(), domain.UnifiedScenario(percentile))
}

// estimate computes one cube entry. Direct variables scale by the ratio of the
// source's aggregate magnitude at the candidate vs. baseline percentile;
// indirect variables sample their own distribution and map through the same
// scaling, damped further for recalculation impacts.
func (e *Engine) estimate(variable domain.SensitivityVariable, def registry.MetricDef, base, baselinePercentile, candidate float64, sets map[float64]*extract.SourceSet) (float64, bool) {
	var change float64
	var category domain.SourceCategory
	var extraDamp float64 = 1

	switch variable.Kind {
	case domain.VariableDirect:
		src, _ := e.registry.SourceByID(variable.SourceID)
		category = src.Category
		baseMag := magnitude(sets[baselinePercentile], variable.SourceID)
		candMag := magnitude(sets[candidate], variable.SourceID)
		if baseMag == 0 {
			if e.verbose {
				log.Printf("[sensitivity] variable %s: zero baseline magnitude, skipping", variable.ID)
			}
			return 0, false
		}
		change = candMag/baseMag - 1

	case domain.VariableIndirect:
		baseVal, okBase := variable.Distribution[baselinePercentile]
		candVal, okCand := variable.Distribution[candidate]
		if !okBase || !okCand {
			if e.verbose {
				log.Printf("[sensitivity] variable %s: distribution missing percentile, skipping", variable.ID)
			}
			return 0, false
		}
		if baseVal == 0 {
			change = candVal
		} else {
			change = (candVal - baseVal) / math.Abs(baseVal)
		}
		category = e.affectedCategory(variable)
		if variable.Impact == domain.ImpactRecalculation {
			extraDamp = dampRecalculation
		}

	default:
		return 0, false
	}

	effect := change * signFor(category, def) * dampingFor(def) * extraDamp
	return base * (1 + effect), true
}

// affectedCategory reduces an indirect variable's affected sources to one
// category: revenue wins if any affected source is revenue-side, otherwise
// cost.
func (e *Engine) affectedCategory(variable domain.SensitivityVariable) domain.SourceCategory {
	category := domain.SourceCost
	for _, id := range variable.Affects {
		if src, ok := e.registry.SourceByID(id); ok && src.Category == domain.SourceRevenue {
			category = domain.SourceRevenue
		}
	}
	return category
}

// signFor orients the effect: a revenue increase improves the metric, a cost
// increase worsens it; "improves" flips for lower-is-better metrics.
func signFor(category domain.SourceCategory, def registry.MetricDef) float64 {
	sign := 1.0
	if category == domain.SourceCost {
		sign = -1.0
	}
	if !def.Thresholds.HigherIsBetter && def.Thresholds != (domain.Thresholds{}) {
		sign = -sign
	}
	return sign
}

// dampingFor picks the per-metric damping from its formatting family.
func dampingFor(def registry.MetricDef) float64 {
	switch def.ID {
	case registry.MetricIRR, registry.MetricEquityIRR:
		return dampRate
	case registry.MetricAvgDSCR, registry.MetricMinDSCR, registry.MetricAvgICR, registry.MetricLLCR:
		return dampRatio
	default:
		return dampCurrency
	}
}

// magnitude is the absolute sum of the extracted series for a source.
func magnitude(set *extract.SourceSet, sourceID string) float64 {
	if set == nil {
		return 0
	}
	ts, ok := set.Get(sourceID)
	if !ok {
		return 0
	}
	return math.Abs(ts.Sum())
}
