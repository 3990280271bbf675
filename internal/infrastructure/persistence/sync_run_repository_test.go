package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/sync"
)

func testRun(tenantID uuid.UUID, status sync.RunStatus, finishedAt *time.Time) *sync.SyncRun {
	now := time.Now().UTC().Truncate(time.Second)
	return &sync.SyncRun{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Route:      sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront},
		EntityType: sync.EntityTypeCustomer,
		Mode:       sync.SyncModeFull,
		Status:     status,
		FinishedAt: finishedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestGormSyncRunRepository_SaveAndFindByID(t *testing.T) {
	repo := NewGormSyncRunRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	run := testRun(tenantID, sync.RunStatusCompleted, nil)
	run.Filters = sync.RunFilters{EntityIDs: []string{"c-1", "c-2"}}
	run.Counts = sync.RunCounts{Fetched: 2, Created: 1, Updated: 1}
	run.Errors = []sync.EntityError{{
		EntityID:   "c-3",
		EntityType: sync.EntityTypeCustomer,
		Kind:       sync.EntityErrorTransformation,
		Message:    "required field missing",
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}}
	require.NoError(t, repo.Save(ctx, run))

	found, err := repo.FindByID(ctx, tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Route, found.Route)
	assert.Equal(t, []string{"c-1", "c-2"}, found.Filters.EntityIDs)
	assert.Equal(t, run.Counts, found.Counts)
	require.Len(t, found.Errors, 1)
	assert.Equal(t, sync.EntityErrorTransformation, found.Errors[0].Kind)
}

func TestGormSyncRunRepository_FindByIDScopedToTenant(t *testing.T) {
	repo := NewGormSyncRunRepository(setupTestDB(t))
	ctx := context.Background()

	run := testRun(uuid.New(), sync.RunStatusCompleted, nil)
	require.NoError(t, repo.Save(ctx, run))

	_, err := repo.FindByID(ctx, uuid.New(), run.ID)
	assert.ErrorIs(t, err, sync.ErrRunNotFound)
}

func TestGormSyncRunRepository_FindLastSuccessful(t *testing.T) {
	repo := NewGormSyncRunRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	older := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	newer := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	latest := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, testRun(tenantID, sync.RunStatusCompleted, &older)))

	want := testRun(tenantID, sync.RunStatusCompleted, &newer)
	require.NoError(t, repo.Save(ctx, want))

	// Neither a failed run nor a completed dry run advances the watermark.
	require.NoError(t, repo.Save(ctx, testRun(tenantID, sync.RunStatusFailed, &latest)))
	dry := testRun(tenantID, sync.RunStatusCompleted, &latest)
	dry.DryRun = true
	require.NoError(t, repo.Save(ctx, dry))

	found, err := repo.FindLastSuccessful(ctx, tenantID, route, sync.EntityTypeCustomer)
	require.NoError(t, err)
	assert.Equal(t, want.ID, found.ID)
	require.NotNil(t, found.FinishedAt)
	assert.True(t, found.FinishedAt.Equal(newer))
}

func TestGormSyncRunRepository_FindLastSuccessfulNoHistory(t *testing.T) {
	repo := NewGormSyncRunRepository(setupTestDB(t))
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	_, err := repo.FindLastSuccessful(context.Background(), uuid.New(), route, sync.EntityTypeCustomer)
	assert.ErrorIs(t, err, sync.ErrRunNotFound)
}

func TestGormSyncRunRepository_List(t *testing.T) {
	repo := NewGormSyncRunRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, testRun(tenantID, sync.RunStatusCompleted, nil)))
	}
	require.NoError(t, repo.Save(ctx, testRun(tenantID, sync.RunStatusFailed, nil)))
	require.NoError(t, repo.Save(ctx, testRun(uuid.New(), sync.RunStatusCompleted, nil)))

	t.Run("all runs for tenant", func(t *testing.T) {
		runs, total, err := repo.List(ctx, tenantID, sync.RunListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, runs, 4)
	})

	t.Run("status filter", func(t *testing.T) {
		status := sync.RunStatusFailed
		runs, total, err := repo.List(ctx, tenantID, sync.RunListFilter{Status: &status})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, runs, 1)
		assert.Equal(t, sync.RunStatusFailed, runs[0].Status)
	})

	t.Run("pagination", func(t *testing.T) {
		runs, total, err := repo.List(ctx, tenantID, sync.RunListFilter{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, runs, 1)
	})
}
