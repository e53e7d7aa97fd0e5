// Package orchestrator provides E2E run orchestration.
// It coordinates: data loading → scenario construction → metric
// computation → persistence → sensitivity → reporting, advancing a
// refresh state machine as each phase completes.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"windfarm-finance-lab/internal/accessor"
	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/processor"
	"windfarm-finance-lab/internal/refresh"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/reporting"
	"windfarm-finance-lab/internal/sensitivity"
	"windfarm-finance-lab/internal/storage"
	"windfarm-finance-lab/internal/stream"
)

// Orchestrator coordinates one full computation run.
type Orchestrator struct {
	// Stores
	scenarioStore         storage.ScenarioStore
	percentileSeriesStore storage.PercentileSeriesStore
	metricResultStore     storage.MetricResultStore
	sensitivityCellStore  storage.SensitivityCellStore

	// Computation config
	registry     *registry.Registry
	scenarios    []domain.PercentileScenario
	baseDocument accessor.Document

	// Sensitivity config
	variables          []domain.SensitivityVariable
	targetMetrics      []string
	baselinePercentile float64
	percentiles        []float64

	// Options
	parallelism     int
	skipSensitivity bool
	verbose         bool
	hub             *stream.Hub
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	ScenarioStore         storage.ScenarioStore
	PercentileSeriesStore storage.PercentileSeriesStore
	MetricResultStore     storage.MetricResultStore
	SensitivityCellStore  storage.SensitivityCellStore

	// Computation config
	Registry *registry.Registry

	// Scenarios to compute. When empty, scenarios are loaded from
	// ScenarioStore instead.
	Scenarios []domain.PercentileScenario

	// BaseDocument seeds the raw-data document with values outside the
	// percentile store, such as transformer inputs.
	BaseDocument accessor.Document

	// Sensitivity config. The run skips the sensitivity phase when
	// Variables is empty or SkipSensitivity is set.
	Variables          []domain.SensitivityVariable
	TargetMetrics      []string
	BaselinePercentile float64
	Percentiles        []float64

	// Options
	Parallelism     int
	SkipSensitivity bool
	Verbose         bool

	// Hub, when set, receives stage transitions and the final result
	// snapshot.
	Hub *stream.Hub
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		scenarioStore:         opts.ScenarioStore,
		percentileSeriesStore: opts.PercentileSeriesStore,
		metricResultStore:     opts.MetricResultStore,
		sensitivityCellStore:  opts.SensitivityCellStore,
		registry:              opts.Registry,
		scenarios:             opts.Scenarios,
		baseDocument:          opts.BaseDocument,
		variables:             opts.Variables,
		targetMetrics:         opts.TargetMetrics,
		baselinePercentile:    opts.BaselinePercentile,
		percentiles:           opts.Percentiles,
		parallelism:           opts.Parallelism,
		skipSensitivity:       opts.SkipSensitivity,
		verbose:               opts.Verbose,
		hub:                   opts.Hub,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID              string
	ScenariosProcessed int
	ResultRowsStored   int
	CellRowsStored     int
	Report             *reporting.Report
	Errors             []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load percentile distributions into the accessor document
//  2. Construct the scenario set
//  3. Compute every metric per scenario
//  4. Persist and pivot results
//  5. Sensitivity analysis (optional)
//  6. Assemble the report
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	machine := refresh.NewMachine()
	machine.OnTransition(o.observeTransition())

	start := time.Now()
	result, err := o.run(ctx, machine)
	if err != nil {
		machine.Fail(err)
		observability.RecordRun("error", time.Since(start).Seconds())
		return nil, err
	}
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	observability.RecordRun("success", time.Since(start).Seconds())
	observability.RecordSuccessfulRun(time.Now().Unix())
	return result, nil
}

// observeTransition combines stage timing with hub broadcasting.
func (o *Orchestrator) observeTransition() refresh.Listener {
	stageStart := time.Now()
	return func(t refresh.Transition) {
		observability.RecordStage(string(t.From), time.Since(stageStart).Seconds())
		stageStart = time.Now()
		o.broadcastTransition(t)
	}
}

func (o *Orchestrator) run(ctx context.Context, machine *refresh.Machine) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load distributions
	o.log("Phase 1: Loading percentile distributions...")
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	doc, err := accessor.FromStore(ctx, o.percentileSeriesStore, o.baseDocument)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load distributions) failed: %w", err)
	}

	// Phase 2: Construct scenarios
	o.log("Phase 2: Constructing scenarios...")
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	scenarios, err := o.loadScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (construct scenarios) failed: %w", err)
	}
	result.ScenariosProcessed = len(scenarios)
	o.log("  Prepared %d scenarios", len(scenarios))

	// Phase 3: Metric computation
	o.log("Phase 3: Computing metrics...")
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	proc := processor.New(processor.Options{
		Registry:    o.registry,
		Accessor:    doc,
		Parallelism: o.parallelism,
		Verbose:     o.verbose,
	})
	batch, err := proc.ComputeAll(ctx, scenarios)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (compute metrics) failed: %w", err)
	}
	result.RunID = batch.RunID
	result.Errors = append(result.Errors, collectFailures(batch)...)
	for _, sc := range batch.Scenarios {
		observability.RecordScenarioComputed()
		for metricID, res := range sc.Results {
			observability.RecordMetricComputed(metricID, !res.OK())
		}
	}
	o.log("  Computed %d scenarios (%d metric failures)", len(batch.Scenarios), len(result.Errors))

	// Phase 4: Persist results
	o.log("Phase 4: Persisting results...")
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	rows := resultRows(batch)
	if o.metricResultStore != nil && len(rows) > 0 {
		if err := o.metricResultStore.InsertBulk(ctx, rows); err != nil {
			return nil, fmt.Errorf("phase 4 (persist results) failed: %w", err)
		}
	}
	result.ResultRowsStored = len(rows)
	o.log("  Stored %d result rows", len(rows))

	// Phase 5: Sensitivity
	if _, err := machine.Advance(); err != nil {
		return nil, err
	}
	var cellRows []*domain.SensitivityCellRow
	if o.skipSensitivity || len(o.variables) == 0 {
		o.log("Phase 5: Skipping sensitivity")
	} else {
		o.log("Phase 5: Building sensitivity cube...")
		engine := sensitivity.New(o.registry, doc)
		engine.SetVerbose(o.verbose)
		cube, err := engine.BuildCube(ctx, o.variables, o.targetMetrics, o.baselinePercentile, o.percentiles)
		if err != nil {
			return nil, fmt.Errorf("phase 5 (sensitivity) failed: %w", err)
		}
		cellRows = cellRowsFromCube(batch.RunID, cube)
		if o.sensitivityCellStore != nil && len(cellRows) > 0 {
			if err := o.sensitivityCellStore.InsertBulk(ctx, cellRows); err != nil {
				return nil, fmt.Errorf("phase 5 (persist cells) failed: %w", err)
			}
		}
		result.CellRowsStored = len(cellRows)
		observability.RecordSensitivityCells(len(cellRows))
		o.log("  Stored %d sensitivity cells", len(cellRows))
	}

	// Phase 6: Report
	gen := reporting.NewGenerator(o.registry, o.metricResultStore, o.sensitivityCellStore)
	result.Report = gen.FromRows(batch.RunID, rows, cellRows)

	o.broadcastResults(result)
	o.log("Run %s completed: %d scenarios, %d result rows, %d cells",
		result.RunID, result.ScenariosProcessed, result.ResultRowsStored, result.CellRowsStored)

	return result, nil
}

// loadScenarios resolves the scenario set: explicit scenarios win, the
// scenario store is the fallback.
func (o *Orchestrator) loadScenarios(ctx context.Context) ([]domain.PercentileScenario, error) {
	if len(o.scenarios) > 0 {
		return o.scenarios, nil
	}
	if o.scenarioStore == nil {
		return nil, fmt.Errorf("no scenarios configured and no scenario store available")
	}
	named, err := o.scenarioStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(named) == 0 {
		return nil, fmt.Errorf("scenario store is empty")
	}
	scenarios := make([]domain.PercentileScenario, 0, len(named))
	for _, n := range named {
		scenarios = append(scenarios, n.Scenario)
	}
	return scenarios, nil
}

// resultRows flattens a batch into persistable rows, scenario by
// scenario in batch order with metric ids sorted inside each scenario.
func resultRows(batch *processor.BatchResult) []*domain.MetricResultRow {
	var rows []*domain.MetricResultRow
	for _, sc := range batch.Scenarios {
		for _, metricID := range sortedResultIDs(sc.Results) {
			res := sc.Results[metricID]
			rows = append(rows, &domain.MetricResultRow{
				RunID:         batch.RunID,
				ScenarioKey:   sc.Key,
				ScenarioLabel: sc.Label,
				MetricID:      metricID,
				Value:         res.Value,
				Err:           res.Err,
			})
		}
	}
	return rows
}

func sortedResultIDs(results map[string]domain.MetricResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// cellRowsFromCube flattens a cube into persistable rows.
func cellRowsFromCube(runID string, cube *domain.SensitivityCube) []*domain.SensitivityCellRow {
	var rows []*domain.SensitivityCellRow
	for _, cell := range cube.Cells {
		for _, p := range cell.SortedPercentiles() {
			rows = append(rows, &domain.SensitivityCellRow{
				RunID:      runID,
				VariableID: cell.VariableID,
				MetricID:   cell.MetricID,
				Percentile: p,
				BaseValue:  cell.BaseValue,
				Estimate:   cell.Impacts[p],
			})
		}
	}
	return rows
}

// collectFailures gathers per-metric error messages from a batch.
func collectFailures(batch *processor.BatchResult) []string {
	var errs []string
	for _, sc := range batch.Scenarios {
		for _, metricID := range sortedResultIDs(sc.Results) {
			if res := sc.Results[metricID]; res.Err != "" {
				errs = append(errs, fmt.Sprintf("%s/%s: %s", sc.Label, metricID, res.Err))
			}
		}
	}
	return errs
}

func (o *Orchestrator) broadcastTransition(t refresh.Transition) {
	if o.hub == nil {
		return
	}
	ev := stream.Event{Type: stream.EventStage, Stage: string(t.To)}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	o.hub.Broadcast(ev)
}

func (o *Orchestrator) broadcastResults(result *RunResult) {
	if o.hub == nil {
		return
	}
	o.hub.Broadcast(stream.Event{
		Type:    stream.EventResults,
		RunID:   result.RunID,
		Payload: result.Report,
	})
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
