package storage

import (
	"context"

	"windfarm-finance-lab/internal/domain"
)

// ScenarioStore provides access to persisted scenario definitions.
type ScenarioStore interface {
	// Insert adds a new named scenario. Returns ErrDuplicateKey if the name exists.
	Insert(ctx context.Context, s *domain.NamedScenario) error

	// GetByName retrieves a scenario by name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.NamedScenario, error)

	// List retrieves all scenarios ordered by name ASC.
	List(ctx context.Context) ([]*domain.NamedScenario, error)
}

// PercentileSeriesStore provides access to percentile-indexed result series,
// the raw data behind percentile-bearing sources.
type PercentileSeriesStore interface {
	// InsertBulk stores one series for (source_id, percentile). Returns
	// ErrDuplicateKey if the pair already has data.
	InsertBulk(ctx context.Context, sourceID string, percentile float64, series domain.TimeSeries) error

	// GetBySource retrieves all percentile series for a source, each sorted by
	// year ASC. Returns an empty map when the source has no data.
	GetBySource(ctx context.Context, sourceID string) (map[float64]domain.TimeSeries, error)

	// SourceIDs retrieves all source ids with stored data, ordered ASC.
	SourceIDs(ctx context.Context) ([]string, error)
}

// MetricResultStore provides access to computed metric results.
type MetricResultStore interface {
	// InsertBulk adds result rows for one run. Fails the batch on any
	// intra-batch duplicate (run_id, scenario_key, metric_id).
	InsertBulk(ctx context.Context, rows []*domain.MetricResultRow) error

	// GetByRun retrieves all rows of a run, ordered by scenario_key, metric_id.
	GetByRun(ctx context.Context, runID string) ([]*domain.MetricResultRow, error)
}

// SensitivityCellStore provides access to computed sensitivity cube cells.
type SensitivityCellStore interface {
	// InsertBulk adds cell rows for one run. Fails the batch on any
	// intra-batch duplicate (run_id, variable_id, metric_id, percentile).
	InsertBulk(ctx context.Context, rows []*domain.SensitivityCellRow) error

	// GetByRun retrieves all rows of a run, ordered by variable_id, metric_id,
	// percentile.
	GetByRun(ctx context.Context, runID string) ([]*domain.SensitivityCellRow, error)
}
