// Package processor orchestrates metric computation across percentile
// scenarios. Each scenario pass owns its working set (extracted sources,
// results), so overlapping batches cannot corrupt each other; the registry is
// read-only shared configuration.
package processor

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/extract"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/scenariokey"
)

// Options for creating a Processor.
type Options struct {
	Registry *registry.Registry
	Accessor extract.Accessor

	// Parallelism bounds concurrent scenario passes; <= 1 runs sequentially.
	// Scenarios are independent, so no cross-scenario ordering is guaranteed
	// or required.
	Parallelism int

	Verbose bool
}

// Processor computes all registered metrics for one or many scenarios.
type Processor struct {
	registry    *registry.Registry
	extractor   *extract.Extractor
	parallelism int
	verbose     bool
}

// New creates a Processor.
func New(opts Options) *Processor {
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &Processor{
		registry:    opts.Registry,
		extractor:   extract.New(opts.Accessor),
		parallelism: parallelism,
		verbose:     opts.Verbose,
	}
}

// Extractor exposes the underlying extractor so callers can register
// collaborator transformers before the first pass.
func (p *Processor) Extractor() *extract.Extractor {
	return p.extractor
}

// ScenarioResult holds every metric's result for one scenario.
type ScenarioResult struct {
	Scenario domain.PercentileScenario
	Key      string
	Label    string
	Results  map[string]domain.MetricResult
}

// BatchResult is the outcome of one ComputeAll call. Scenarios appear in
// request order. The batch is owned exclusively by the requesting caller.
type BatchResult struct {
	RunID     string
	Scenarios []ScenarioResult
}

// ByMetric pivots the batch to metricID -> (scenarioKey, result) pairs.
func (b *BatchResult) ByMetric() map[string][]ScenarioMetric {
	out := make(map[string][]ScenarioMetric)
	for _, sc := range b.Scenarios {
		for metricID, res := range sc.Results {
			out[metricID] = append(out[metricID], ScenarioMetric{ScenarioKey: sc.Key, Label: sc.Label, Result: res})
		}
	}
	return out
}

// ScenarioMetric pairs one scenario with one metric result.
type ScenarioMetric struct {
	ScenarioKey string
	Label       string
	Result      domain.MetricResult
}

// ComputeAll computes every registered metric for each scenario independently.
// A failing metric fills its own slot with an error result and never blocks
// sibling metrics or other scenarios. Output is deterministic for identical
// (scenarios, registry, raw data) inputs.
func (p *Processor) ComputeAll(ctx context.Context, scenarios []domain.PercentileScenario) (*BatchResult, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios given", domain.ErrValidation)
	}
	for _, s := range scenarios {
		if !s.Type.IsValid() {
			return nil, fmt.Errorf("%w: invalid scenario type %q", domain.ErrValidation, s.Type)
		}
	}

	batch := &BatchResult{
		RunID:     uuid.NewString(),
		Scenarios: make([]ScenarioResult, len(scenarios)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, scenario := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch.Scenarios[i] = p.computeScenario(scenario)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

// computeScenario runs one full pass: extract each source once, then walk the
// resolved metric order assembling inputs per tier.
func (p *Processor) computeScenario(scenario domain.PercentileScenario) ScenarioResult {
	sources := p.extractor.ExtractAll(p.registry.Sources(), scenario)
	results := make(map[string]domain.MetricResult)

	for _, metricID := range p.registry.Order() {
		def, err := p.registry.Metric(metricID)
		if err != nil {
			results[metricID] = domain.ErrorResult(err.Error())
			continue
		}
		results[metricID] = p.computeMetric(def, sources, results)
		if p.verbose {
			log.Printf("[processor] scenario %s metric %s: ok=%v", scenariokey.Label(scenario), metricID, results[metricID].OK())
		}
	}

	return ScenarioResult{
		Scenario: scenario,
		Key:      scenariokey.Compute(scenario),
		Label:    scenariokey.Label(scenario),
		Results:  results,
	}
}

// computeMetric assembles the input for one metric and runs its calculation.
// Analytical metrics never see raw sources, only their declared foundational
// dependencies' results. Any panic converts to a calculation-failed slot.
func (p *Processor) computeMetric(def registry.MetricDef, sources *extract.SourceSet, computed map[string]domain.MetricResult) (result domain.MetricResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ErrorResult(fmt.Sprintf("%v: %v", domain.ErrCalculationFailed, r))
		}
	}()

	in := registry.CalcInput{
		Financing: p.registry.Financing(),
		Results:   make(map[string]domain.MetricResult, len(def.DependsOn)),
	}
	if def.Category == domain.MetricFoundational {
		in.Sources = sources
	}
	for _, dep := range def.DependsOn {
		if r, ok := computed[dep]; ok {
			in.Results[dep] = r
		}
	}

	return def.Calculate(in, def.Aggregation)
}
