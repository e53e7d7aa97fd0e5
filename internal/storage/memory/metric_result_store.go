package memory

import (
	"context"
	"sort"
	"sync"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

// MetricResultStore is an in-memory implementation of storage.MetricResultStore.
type MetricResultStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.MetricResultRow // keyed by run_id
	keys map[string]struct{}                  // run_id|scenario_key|metric_id
}

// NewMetricResultStore creates a new in-memory metric result store.
func NewMetricResultStore() *MetricResultStore {
	return &MetricResultStore{
		data: make(map[string][]*domain.MetricResultRow),
		keys: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.MetricResultStore = (*MetricResultStore)(nil)

// InsertBulk adds result rows for one run. Fails the entire batch on any
// duplicate (run_id, scenario_key, metric_id).
func (s *MetricResultStore) InsertBulk(_ context.Context, rows []*domain.MetricResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.MetricID == "" {
			return storage.ErrInvalidInput
		}
		key := r.RunID + "|" + r.ScenarioKey + "|" + r.MetricID
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
		if r.Value != nil {
			v := *r.Value
			row.Value = &v
		}
		s.data[r.RunID] = append(s.data[r.RunID], &row)
		s.keys[r.RunID+"|"+r.ScenarioKey+"|"+r.MetricID] = struct{}{}
	}
	return nil
}

// GetByRun retrieves all rows of a run, ordered by scenario_key, metric_id.
func (s *MetricResultStore) GetByRun(_ context.Context, runID string) ([]*domain.MetricResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[runID]
	out := make([]*domain.MetricResultRow, 0, len(rows))
	for _, r := range rows {
		row := *r
		if r.Value != nil {
			v := *r.Value
			row.Value = &v
		}
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScenarioKey != out[j].ScenarioKey {
			return out[i].ScenarioKey < out[j].ScenarioKey
		}
		return out[i].MetricID < out[j].MetricID
	})
	return out, nil
}
