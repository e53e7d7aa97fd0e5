package clickhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/storage"
)

// MetricResultStore implements storage.MetricResultStore using ClickHouse.
// Failed metrics persist with value NaN and a non-empty error string;
// NaN maps back to a nil Value on read.
type MetricResultStore struct {
	conn *Conn
}

// NewMetricResultStore creates a new MetricResultStore.
func NewMetricResultStore(conn *Conn) *MetricResultStore {
	return &MetricResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricResultStore = (*MetricResultStore)(nil)

// InsertBulk adds result rows for one run via a batched insert.
// Fails the entire batch on any intra-batch duplicate key.
func (s *MetricResultStore) InsertBulk(ctx context.Context, rows []*domain.MetricResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.MetricID == "" {
			return storage.ErrInvalidInput
		}
		key := r.RunID + "|" + r.ScenarioKey + "|" + r.MetricID
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_results (
			run_id, scenario_key, scenario_label, metric_id, value, error
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare metric results batch: %w", err)
	}

	for _, r := range rows {
		value := math.NaN()
		if r.Value != nil {
			value = *r.Value
		}
		if err := batch.Append(r.RunID, r.ScenarioKey, r.ScenarioLabel, r.MetricID, value, r.Err); err != nil {
			return fmt.Errorf("append metric result row: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send metric results batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all rows of a run, ordered by scenario_key, metric_id.
func (s *MetricResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.MetricResultRow, error) {
	query := `
		SELECT run_id, scenario_key, scenario_label, metric_id, value, error
		FROM metric_results
		WHERE run_id = ?
		ORDER BY scenario_key ASC, metric_id ASC
	`
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get metric results: %w", err)
	}
	defer rows.Close()

	var out []*domain.MetricResultRow
	for rows.Next() {
		var (
			r     domain.MetricResultRow
			value float64
		)
		if err := rows.Scan(&r.RunID, &r.ScenarioKey, &r.ScenarioLabel, &r.MetricID, &value, &r.Err); err != nil {
			return nil, fmt.Errorf("scan metric result row: %w", err)
		}
		if !math.IsNaN(value) {
			r.Value = &value
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric results: %w", err)
	}
	return out, nil
}
