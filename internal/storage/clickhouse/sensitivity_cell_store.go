package clickhouse

import (
	"context"
	"fmt"
	"time"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/observability"
	"windfarm-finance-lab/internal/storage"
)

// SensitivityCellStore implements storage.SensitivityCellStore using ClickHouse.
type SensitivityCellStore struct {
	conn *Conn
}

// NewSensitivityCellStore creates a new SensitivityCellStore.
func NewSensitivityCellStore(conn *Conn) *SensitivityCellStore {
	return &SensitivityCellStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SensitivityCellStore = (*SensitivityCellStore)(nil)

// InsertBulk adds cell rows for one run via a batched insert.
// Fails the entire batch on any intra-batch duplicate key.
func (s *SensitivityCellStore) InsertBulk(ctx context.Context, rows []*domain.SensitivityCellRow) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.VariableID == "" || r.MetricID == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%s|%s|%g", r.RunID, r.VariableID, r.MetricID, r.Percentile)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sensitivity_cells (
			run_id, variable_id, metric_id, percentile, base_value, estimate
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare sensitivity cells batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(r.RunID, r.VariableID, r.MetricID, r.Percentile, r.BaseValue, r.Estimate); err != nil {
			return fmt.Errorf("append sensitivity cell row: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send sensitivity cells batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all rows of a run, ordered by variable_id, metric_id,
// percentile.
func (s *SensitivityCellStore) GetByRun(ctx context.Context, runID string) ([]*domain.SensitivityCellRow, error) {
	query := `
		SELECT run_id, variable_id, metric_id, percentile, base_value, estimate
		FROM sensitivity_cells
		WHERE run_id = ?
		ORDER BY variable_id ASC, metric_id ASC, percentile ASC
	`
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get sensitivity cells: %w", err)
	}
	defer rows.Close()

	var out []*domain.SensitivityCellRow
	for rows.Next() {
		var r domain.SensitivityCellRow
		if err := rows.Scan(&r.RunID, &r.VariableID, &r.MetricID, &r.Percentile, &r.BaseValue, &r.Estimate); err != nil {
			return nil, fmt.Errorf("scan sensitivity cell row: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensitivity cells: %w", err)
	}
	return out, nil
}
