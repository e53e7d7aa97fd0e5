package memory

import (
	"context"
	"sort"
	"sync"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

// ScenarioStore is an in-memory implementation of storage.ScenarioStore.
type ScenarioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NamedScenario // keyed by name
}

// NewScenarioStore creates a new in-memory scenario store.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{data: make(map[string]*domain.NamedScenario)}
}

// Compile-time interface check.
var _ storage.ScenarioStore = (*ScenarioStore)(nil)

// Insert adds a new named scenario. Returns ErrDuplicateKey if the name exists.
func (s *ScenarioStore) Insert(_ context.Context, sc *domain.NamedScenario) error {
	if sc == nil || sc.Name == "" || !sc.Scenario.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sc.Name]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[sc.Name] = cloneScenario(sc)
	return nil
}

// GetByName retrieves a scenario by name. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByName(_ context.Context, name string) (*domain.NamedScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.data[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneScenario(sc), nil
}

// List retrieves all scenarios ordered by name ASC.
func (s *ScenarioStore) List(_ context.Context) ([]*domain.NamedScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*domain.NamedScenario, 0, len(names))
	for _, name := range names {
		out = append(out, cloneScenario(s.data[name]))
	}
	return out, nil
}

func cloneScenario(sc *domain.NamedScenario) *domain.NamedScenario {
	out := *sc
	if sc.Scenario.SourcePercentiles != nil {
		out.Scenario.SourcePercentiles = make(map[string]float64, len(sc.Scenario.SourcePercentiles))
		for k, v := range sc.Scenario.SourcePercentiles {
			out.Scenario.SourcePercentiles[k] = v
		}
	}
	return &out
}
