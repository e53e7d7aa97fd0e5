package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

// ScenarioStore implements storage.ScenarioStore using PostgreSQL.
// Per-source percentile maps persist as JSONB.
type ScenarioStore struct {
	pool *Pool
}

// NewScenarioStore creates a new ScenarioStore.
func NewScenarioStore(pool *Pool) *ScenarioStore {
	return &ScenarioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioStore = (*ScenarioStore)(nil)

// Insert adds a new named scenario. Returns ErrDuplicateKey if the name exists.
func (s *ScenarioStore) Insert(ctx context.Context, sc *domain.NamedScenario) error {
	if sc == nil || sc.Name == "" || !sc.Scenario.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	overrides, err := json.Marshal(sc.Scenario.SourcePercentiles)
	if err != nil {
		return fmt.Errorf("marshal source percentiles: %w", err)
	}

	query := `
		INSERT INTO scenarios (name, scenario_type, percentile, source_percentiles)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.pool.Exec(ctx, query, sc.Name, string(sc.Scenario.Type), sc.Scenario.Percentile, overrides)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// GetByName retrieves a scenario by name. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByName(ctx context.Context, name string) (*domain.NamedScenario, error) {
	query := `
		SELECT name, scenario_type, percentile, source_percentiles
		FROM scenarios
		WHERE name = $1
	`
	row := s.pool.QueryRow(ctx, query, name)
	sc, err := scanScenario(row.Scan)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario by name: %w", err)
	}
	return sc, nil
}

// List retrieves all scenarios ordered by name ASC.
func (s *ScenarioStore) List(ctx context.Context) ([]*domain.NamedScenario, error) {
	query := `
		SELECT name, scenario_type, percentile, source_percentiles
		FROM scenarios
		ORDER BY name ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []*domain.NamedScenario
	for rows.Next() {
		sc, err := scanScenario(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}
	return out, nil
}

func scanScenario(scan func(dest ...any) error) (*domain.NamedScenario, error) {
	var (
		sc           domain.NamedScenario
		scenarioType string
		overrides    []byte
	)
	if err := scan(&sc.Name, &scenarioType, &sc.Scenario.Percentile, &overrides); err != nil {
		return nil, err
	}
	sc.Scenario.Type = domain.ScenarioType(scenarioType)
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &sc.Scenario.SourcePercentiles); err != nil {
			return nil, fmt.Errorf("unmarshal source percentiles: %w", err)
		}
	}
	return &sc, nil
}
