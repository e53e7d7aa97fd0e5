package postgres

import (
	"context"
	"fmt"
	"time"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/storage"
)

// PercentileSeriesStore implements storage.PercentileSeriesStore using
// PostgreSQL. One row per (source_id, percentile, year).
type PercentileSeriesStore struct {
	pool *Pool
}

// NewPercentileSeriesStore creates a new PercentileSeriesStore.
func NewPercentileSeriesStore(pool *Pool) *PercentileSeriesStore {
	return &PercentileSeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PercentileSeriesStore = (*PercentileSeriesStore)(nil)

// InsertBulk stores one series for (source_id, percentile) atomically.
// Returns ErrDuplicateKey if the pair already has data.
func (s *PercentileSeriesStore) InsertBulk(ctx context.Context, sourceID string, percentile float64, series domain.TimeSeries) error {
	if sourceID == "" || len(series) == 0 {
		return storage.ErrInvalidInput
	}

	// The transaction bypasses the instrumented pool methods, so the whole
	// insert is recorded as one observation.
	start := time.Now()
	err := s.insertBulk(ctx, sourceID, percentile, series)
	observability.RecordDBQuery("postgres", "insert", time.Since(start).Seconds(), err)
	return err
}

func (s *PercentileSeriesStore) insertBulk(ctx context.Context, sourceID string, percentile float64, series domain.TimeSeries) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO percentile_series (source_id, percentile, year, value)
		VALUES ($1, $2, $3, $4)
	`
	for _, p := range series.Sorted() {
		if _, err := tx.Exec(ctx, query, sourceID, percentile, p.Year, p.Value); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert percentile series point: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySource retrieves all percentile series for a source, each sorted by
// year ASC. Returns an empty map when the source has no data.
func (s *PercentileSeriesStore) GetBySource(ctx context.Context, sourceID string) (map[float64]domain.TimeSeries, error) {
	query := `
		SELECT percentile, year, value
		FROM percentile_series
		WHERE source_id = $1
		ORDER BY percentile ASC, year ASC
	`
	rows, err := s.pool.Query(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get percentile series: %w", err)
	}
	defer rows.Close()

	out := make(map[float64]domain.TimeSeries)
	for rows.Next() {
		var (
			percentile float64
			point      domain.DataPoint
		)
		if err := rows.Scan(&percentile, &point.Year, &point.Value); err != nil {
			return nil, fmt.Errorf("scan percentile series point: %w", err)
		}
		out[percentile] = append(out[percentile], point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate percentile series: %w", err)
	}
	return out, nil
}

// SourceIDs retrieves all source ids with stored data, ordered ASC.
func (s *PercentileSeriesStore) SourceIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT source_id
		FROM percentile_series
		ORDER BY source_id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list source ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan source id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source ids: %w", err)
	}
	return out, nil
}
