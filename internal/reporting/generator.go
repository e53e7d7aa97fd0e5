package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/registry"
	"windfarm-finance-lab/internal/storage"
)

// Generator produces reports from stored run data.
type Generator struct {
	registry    *registry.Registry
	resultStore storage.MetricResultStore
	cellStore   storage.SensitivityCellStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. The sensitivity store
// may be nil when the run skipped the sensitivity phase.
func NewGenerator(
	reg *registry.Registry,
	resultStore storage.MetricResultStore,
	cellStore storage.SensitivityCellStore,
) *Generator {
	return &Generator{
		registry:    reg,
		resultStore: resultStore,
		cellStore:   cellStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	rows, err := g.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load metric results: %w", err)
	}

	var cells []*domain.SensitivityCellRow
	if g.cellStore != nil {
		cells, err = g.cellStore.GetByRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load sensitivity cells: %w", err)
		}
	}

	report := g.build(runID, rows, cells)
	return report, nil
}

// FromRows assembles a report directly from in-memory rows, bypassing
// storage. The orchestrator uses this right after a compute pass.
func (g *Generator) FromRows(runID string, rows []*domain.MetricResultRow, cells []*domain.SensitivityCellRow) *Report {
	return g.build(runID, rows, cells)
}

func (g *Generator) build(runID string, rows []*domain.MetricResultRow, cells []*domain.SensitivityCellRow) *Report {
	report := &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Scenarios:   scenarioColumns(rows),
		Sensitivity: tornadoRows(cells),
	}
	report.ScenarioCount = len(report.Scenarios)

	colIndex := make(map[string]int, len(report.Scenarios))
	for i, col := range report.Scenarios {
		colIndex[col.Key] = i
	}

	byMetric := make(map[string][]Cell)
	for _, row := range rows {
		idx, ok := colIndex[row.ScenarioKey]
		if !ok {
			continue
		}
		cellsRow, ok := byMetric[row.MetricID]
		if !ok {
			cellsRow = make([]Cell, len(report.Scenarios))
			byMetric[row.MetricID] = cellsRow
		}
		cellsRow[idx] = g.cell(row)
	}

	ids := make([]string, 0, len(byMetric))
	for id := range byMetric {
		ids = append(ids, id)
	}
	sortMetricIDs(g.registry, ids)

	for _, id := range ids {
		category := ""
		if def, err := g.registry.Metric(id); err == nil {
			category = string(def.Category)
		}
		report.Metrics = append(report.Metrics, MetricRow{
			MetricID: id,
			Category: category,
			Cells:    byMetric[id],
		})
	}
	report.MetricCount = len(report.Metrics)

	return report
}

func (g *Generator) cell(row *domain.MetricResultRow) Cell {
	c := Cell{Value: row.Value, Err: row.Err}
	if row.Value == nil {
		return c
	}
	if def, err := g.registry.Metric(row.MetricID); err == nil && def.Format != nil {
		c.Formatted = def.Format(*row.Value)
	} else {
		c.Formatted = fmt.Sprintf("%.2f", *row.Value)
	}
	return c
}

// scenarioColumns derives the ordered column set from result rows:
// labels sorted lexically, with the key as tie-break.
func scenarioColumns(rows []*domain.MetricResultRow) []ScenarioColumn {
	seen := make(map[string]string)
	for _, row := range rows {
		seen[row.ScenarioKey] = row.ScenarioLabel
	}
	cols := make([]ScenarioColumn, 0, len(seen))
	for key, label := range seen {
		cols = append(cols, ScenarioColumn{Key: key, Label: label})
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Label != cols[j].Label {
			return cols[i].Label < cols[j].Label
		}
		return cols[i].Key < cols[j].Key
	})
	return cols
}

// tornadoRows collapses per-percentile cells into one row per
// (variable, metric) pair holding the extremes of the estimates.
func tornadoRows(cells []*domain.SensitivityCellRow) []TornadoRow {
	type pairKey struct{ variableID, metricID string }
	acc := make(map[pairKey]*TornadoRow)
	for _, cell := range cells {
		key := pairKey{cell.VariableID, cell.MetricID}
		row, ok := acc[key]
		if !ok {
			row = &TornadoRow{
				VariableID: cell.VariableID,
				MetricID:   cell.MetricID,
				BaseValue:  cell.BaseValue,
				Low:        cell.Estimate,
				High:       cell.Estimate,
			}
			acc[key] = row
			continue
		}
		if cell.Estimate < row.Low {
			row.Low = cell.Estimate
		}
		if cell.Estimate > row.High {
			row.High = cell.Estimate
		}
	}

	rows := make([]TornadoRow, 0, len(acc))
	for _, row := range acc {
		row.Spread = row.High - row.Low
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Spread != rows[j].Spread {
			return rows[i].Spread > rows[j].Spread
		}
		if rows[i].VariableID != rows[j].VariableID {
			return rows[i].VariableID < rows[j].VariableID
		}
		return rows[i].MetricID < rows[j].MetricID
	})
	return rows
}

// sortMetricIDs orders metric ids by registry position (category, then
// priority) so the matrix reads foundational-first; unknown ids sort last.
func sortMetricIDs(reg *registry.Registry, ids []string) {
	rank := func(id string) (int, int) {
		def, err := reg.Metric(id)
		if err != nil {
			return 2, 0
		}
		if def.Category == domain.MetricFoundational {
			return 0, def.Priority
		}
		return 1, def.Priority
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, pi := rank(ids[i])
		cj, pj := rank(ids[j])
		if ci != cj {
			return ci < cj
		}
		if pi != pj {
			return pi < pj
		}
		return ids[i] < ids[j]
	})
}
