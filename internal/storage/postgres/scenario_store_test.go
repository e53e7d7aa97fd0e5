package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

func TestScenarioStore_InsertAndGetByName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	named := &domain.NamedScenario{
		Name:     "central",
		Scenario: domain.UnifiedScenario(50),
	}

	err := store.Insert(ctx, named)
	require.NoError(t, err)

	retrieved, err := store.GetByName(ctx, "central")
	require.NoError(t, err)

	assert.Equal(t, "central", retrieved.Name)
	assert.Equal(t, domain.ScenarioUnified, retrieved.Scenario.Type)
	assert.Equal(t, 50.0, retrieved.Scenario.Percentile)
}

func TestScenarioStore_PerSourceRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	named := &domain.NamedScenario{
		Name: "stress",
		Scenario: domain.PerSourceScenario(map[string]float64{
			"energy_production": 90,
			"operating_costs":   75,
		}),
	}

	err := store.Insert(ctx, named)
	require.NoError(t, err)

	retrieved, err := store.GetByName(ctx, "stress")
	require.NoError(t, err)

	assert.Equal(t, domain.ScenarioPerSource, retrieved.Scenario.Type)
	assert.Equal(t, 90.0, retrieved.Scenario.SourcePercentiles["energy_production"])
	assert.Equal(t, 75.0, retrieved.Scenario.SourcePercentiles["operating_costs"])
}

func TestScenarioStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	named := &domain.NamedScenario{Name: "central", Scenario: domain.UnifiedScenario(50)}

	err := store.Insert(ctx, named)
	require.NoError(t, err)

	err = store.Insert(ctx, named)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestScenarioStore_GetByName_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	_, err := store.GetByName(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScenarioStore_List_OrderedByName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	for _, name := range []string{"pessimistic", "central", "optimistic"} {
		err := store.Insert(ctx, &domain.NamedScenario{Name: name, Scenario: domain.UnifiedScenario(50)})
		require.NoError(t, err)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "central", list[0].Name)
	assert.Equal(t, "optimistic", list[1].Name)
	assert.Equal(t, "pessimistic", list[2].Name)
}

func TestScenarioStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, &domain.NamedScenario{Name: ""})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.NamedScenario{
		Name:     "bad-type",
		Scenario: domain.PercentileScenario{Type: "gaussian"},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
