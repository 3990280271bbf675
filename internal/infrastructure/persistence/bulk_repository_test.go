package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/bulk"
)

func TestGormTokenRepository_SaveAndFind(t *testing.T) {
	repo := NewGormTokenRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	token, err := bulk.NewConfirmationToken(tenantID, "delete customers", 500, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, token))

	found, err := repo.Find(ctx, tenantID, token.Token)
	require.NoError(t, err)
	assert.Equal(t, "delete customers", found.Description)
	assert.Equal(t, 500, found.RecordCount)
	assert.True(t, found.Destructive)
	assert.False(t, found.Consumed)

	t.Run("consumed state persists", func(t *testing.T) {
		require.NoError(t, found.Consume(time.Now()))
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.Find(ctx, tenantID, token.Token)
		require.NoError(t, err)
		assert.True(t, reloaded.Consumed)
		assert.NotNil(t, reloaded.ConsumedAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := repo.Find(ctx, tenantID, "nope")
		assert.ErrorIs(t, err, bulk.ErrTokenUnknown)
	})

	t.Run("foreign tenant", func(t *testing.T) {
		_, err := repo.Find(ctx, uuid.New(), token.Token)
		assert.ErrorIs(t, err, bulk.ErrTokenUnknown)
	})
}

func TestGormAuditRepository_AppendAndList(t *testing.T) {
	repo := NewGormAuditRepository(setupTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	operations := []string{"first", "second", "third"}
	for i, op := range operations {
		entry := bulk.NewAuditEntry(tenantID, op, 100*(i+1), false, "tok")
		entry.OccurredAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(ctx, entry))
	}
	require.NoError(t, repo.Append(ctx, bulk.NewAuditEntry(uuid.New(), "other tenant", 1, false, "")))

	entries, err := repo.ListForTenant(ctx, tenantID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Operation)
	assert.Equal(t, "second", entries[1].Operation)
}
