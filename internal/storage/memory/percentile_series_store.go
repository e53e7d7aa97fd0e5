package memory

import (
	"context"
	"sort"
	"sync"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

// PercentileSeriesStore is an in-memory implementation of
// storage.PercentileSeriesStore.
type PercentileSeriesStore struct {
	mu   sync.RWMutex
	data map[string]map[float64]domain.TimeSeries // source_id -> percentile -> series
}

// NewPercentileSeriesStore creates a new in-memory percentile series store.
func NewPercentileSeriesStore() *PercentileSeriesStore {
	return &PercentileSeriesStore{data: make(map[string]map[float64]domain.TimeSeries)}
}

// Compile-time interface check.
var _ storage.PercentileSeriesStore = (*PercentileSeriesStore)(nil)

// InsertBulk stores one series for (source_id, percentile).
// Returns ErrDuplicateKey if the pair already has data.
func (s *PercentileSeriesStore) InsertBulk(_ context.Context, sourceID string, percentile float64, series domain.TimeSeries) error {
	if sourceID == "" || len(series) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byPercentile, ok := s.data[sourceID]
	if !ok {
		byPercentile = make(map[float64]domain.TimeSeries)
		s.data[sourceID] = byPercentile
	}
	if _, exists := byPercentile[percentile]; exists {
		return storage.ErrDuplicateKey
	}
	byPercentile[percentile] = series.Sorted()
	return nil
}

// GetBySource retrieves all percentile series for a source, each sorted by
// year ASC. Returns an empty map when the source has no data.
func (s *PercentileSeriesStore) GetBySource(_ context.Context, sourceID string) (map[float64]domain.TimeSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[float64]domain.TimeSeries)
	for percentile, series := range s.data[sourceID] {
		out[percentile] = series.Clone()
	}
	return out, nil
}

// SourceIDs retrieves all source ids with stored data, ordered ASC.
func (s *PercentileSeriesStore) SourceIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
