package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

// SensitivityCellStore is an in-memory implementation of
// storage.SensitivityCellStore.
type SensitivityCellStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SensitivityCellRow // keyed by run_id
	keys map[string]struct{}                     // run_id|variable_id|metric_id|percentile
}

// NewSensitivityCellStore creates a new in-memory sensitivity cell store.
func NewSensitivityCellStore() *SensitivityCellStore {
	return &SensitivityCellStore{
		data: make(map[string][]*domain.SensitivityCellRow),
		keys: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.SensitivityCellStore = (*SensitivityCellStore)(nil)

func cellKey(r *domain.SensitivityCellRow) string {
	return fmt.Sprintf("%s|%s|%s|%g", r.RunID, r.VariableID, r.MetricID, r.Percentile)
}

// InsertBulk adds cell rows for one run. Fails the entire batch on any
// duplicate (run_id, variable_id, metric_id, percentile).
func (s *SensitivityCellStore) InsertBulk(_ context.Context, rows []*domain.SensitivityCellRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.VariableID == "" || r.MetricID == "" {
			return storage.ErrInvalidInput
		}
		key := cellKey(r)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		row := *r
		s.data[r.RunID] = append(s.data[r.RunID], &row)
		s.keys[cellKey(r)] = struct{}{}
	}
	return nil
}

// GetByRun retrieves all rows of a run, ordered by variable_id, metric_id,
// percentile.
func (s *SensitivityCellStore) GetByRun(_ context.Context, runID string) ([]*domain.SensitivityCellRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[runID]
	out := make([]*domain.SensitivityCellRow, 0, len(rows))
	for _, r := range rows {
		row := *r
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VariableID != out[j].VariableID {
			return out[i].VariableID < out[j].VariableID
		}
		if out[i].MetricID != out[j].MetricID {
			return out[i].MetricID < out[j].MetricID
		}
		return out[i].Percentile < out[j].Percentile
	})
	return out, nil
}
