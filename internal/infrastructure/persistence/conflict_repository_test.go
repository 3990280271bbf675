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

func testConflict(tenantID uuid.UUID, sourceID string, detectedAt time.Time) *sync.SyncConflict {
	return &sync.SyncConflict{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EntityType:    sync.EntityTypeProduct,
		SourceID:      sourceID,
		LocalVersion:  "hash-local",
		RemoteVersion: "hash-remote",
		DetectedAt:    detectedAt,
		Resolution:    sync.ConflictResolutionPending,
		CreatedAt:     detectedAt,
		UpdatedAt:     detectedAt,
	}
}

func TestGormConflictRepository_SaveAndFindByID(t *testing.T) {
	repo := NewGormConflictRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	conflict := testConflict(tenantID, "p-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, repo.Save(ctx, conflict))

	found, err := repo.FindByID(ctx, tenantID, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-local", found.LocalVersion)
	assert.Equal(t, "hash-remote", found.RemoteVersion)
	assert.Equal(t, sync.ConflictResolutionPending, found.Resolution)

	_, err = repo.FindByID(ctx, uuid.New(), conflict.ID)
	assert.ErrorIs(t, err, sync.ErrConflictNotFound)
}

func TestGormConflictRepository_FindPending(t *testing.T) {
	repo := NewGormConflictRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	conflict := testConflict(tenantID, "p-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, repo.Save(ctx, conflict))

	found, err := repo.FindPending(ctx, tenantID, sync.EntityTypeProduct, "p-1")
	require.NoError(t, err)
	assert.Equal(t, conflict.ID, found.ID)

	_, err = repo.FindPending(ctx, tenantID, sync.EntityTypeProduct, "p-2")
	assert.ErrorIs(t, err, sync.ErrConflictNotFound)
}

func TestGormConflictRepository_ResolvedConflictNoLongerPending(t *testing.T) {
	repo := NewGormConflictRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	conflict := testConflict(tenantID, "p-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, repo.Save(ctx, conflict))
	require.NoError(t, conflict.Resolve(sync.ConflictResolutionSourceWins))
	require.NoError(t, repo.Save(ctx, conflict))

	_, err := repo.FindPending(ctx, tenantID, sync.EntityTypeProduct, "p-1")
	assert.ErrorIs(t, err, sync.ErrConflictNotFound)

	found, err := repo.FindByID(ctx, tenantID, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.ConflictResolutionSourceWins, found.Resolution)
	assert.NotNil(t, found.ResolvedAt)
}

func TestGormConflictRepository_ListPendingOldestFirst(t *testing.T) {
	repo := NewGormConflictRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	newer := testConflict(tenantID, "p-2", now)
	older := testConflict(tenantID, "p-1", now.Add(-time.Hour))
	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, testConflict(uuid.New(), "p-3", now)))

	pending, err := repo.ListPending(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p-1", pending[0].SourceID)
	assert.Equal(t, "p-2", pending[1].SourceID)
}
