package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windfarm-finance-lab/internal/domain"
	"windfarm-finance-lab/internal/storage"
)

func TestMetricResultStore_InsertAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricResultStore(conn)
	ctx := context.Background()

	rows := []*domain.MetricResultRow{
		{RunID: "run-1", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "npv", Value: ptr(1250000.0)},
		{RunID: "run-1", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "irr", Value: ptr(0.082)},
		{RunID: "run-1", ScenarioKey: "key-b", ScenarioLabel: "P90", MetricID: "npv", Value: ptr(410000.0)},
	}

	err := store.InsertBulk(ctx, rows)
	require.NoError(t, err)

	retrieved, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, retrieved, 3)

	// Ordered by scenario_key, metric_id
	assert.Equal(t, "key-a", retrieved[0].ScenarioKey)
	assert.Equal(t, "irr", retrieved[0].MetricID)
	assert.Equal(t, "key-a", retrieved[1].ScenarioKey)
	assert.Equal(t, "npv", retrieved[1].MetricID)
	assert.Equal(t, "key-b", retrieved[2].ScenarioKey)

	require.NotNil(t, retrieved[1].Value)
	assert.InDelta(t, 1250000.0, *retrieved[1].Value, 1e-9)
	assert.Equal(t, "P50", retrieved[1].ScenarioLabel)
}

func TestMetricResultStore_FailedMetricRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricResultStore(conn)
	ctx := context.Background()

	rows := []*domain.MetricResultRow{
		{RunID: "run-2", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "irr", Err: "no sign change in cash flows"},
	}

	err := store.InsertBulk(ctx, rows)
	require.NoError(t, err)

	retrieved, err := store.GetByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, retrieved, 1)

	// NaN sentinel maps back to nil
	assert.Nil(t, retrieved[0].Value)
	assert.Equal(t, "no sign change in cash flows", retrieved[0].Err)
}

func TestMetricResultStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricResultStore(conn)
	ctx := context.Background()

	rows := []*domain.MetricResultRow{
		{RunID: "run-3", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "npv", Value: ptr(1.0)},
		{RunID: "run-3", ScenarioKey: "key-a", ScenarioLabel: "P50", MetricID: "npv", Value: ptr(2.0)},
	}

	err := store.InsertBulk(ctx, rows)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The whole batch must have been rejected
	retrieved, err := store.GetByRun(ctx, "run-3")
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func TestMetricResultStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricResultStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.MetricResultRow{
		{RunID: "", ScenarioKey: "key-a", MetricID: "npv"},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestMetricResultStore_GetByRun_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricResultStore(conn)
	ctx := context.Background()

	retrieved, err := store.GetByRun(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}
