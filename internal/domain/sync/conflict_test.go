package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncConflict(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		conflict, err := NewSyncConflict(uuid.New(), EntityTypeCustomer, "cust-1", "hashA", "hashB")
		require.NoError(t, err)
		assert.Equal(t, ConflictResolutionPending, conflict.Resolution)
		assert.True(t, conflict.IsPending())
		assert.Nil(t, conflict.ResolvedAt)
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewSyncConflict(uuid.Nil, EntityTypeCustomer, "cust-1", "a", "b")
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})

	t.Run("missing source id", func(t *testing.T) {
		_, err := NewSyncConflict(uuid.New(), EntityTypeCustomer, "", "a", "b")
		assert.Error(t, err)
	})
}

func TestSyncConflict_Resolve(t *testing.T) {
	t.Run("resolves once", func(t *testing.T) {
		conflict, err := NewSyncConflict(uuid.New(), EntityTypeOrder, "o-1", "a", "b")
		require.NoError(t, err)

		require.NoError(t, conflict.Resolve(ConflictResolutionSourceWins))
		assert.False(t, conflict.IsPending())
		assert.NotNil(t, conflict.ResolvedAt)

		assert.ErrorIs(t, conflict.Resolve(ConflictResolutionTargetWins), ErrConflictAlreadyResolved)
		assert.Equal(t, ConflictResolutionSourceWins, conflict.Resolution)
	})

	t.Run("rejects pending as resolution", func(t *testing.T) {
		conflict, err := NewSyncConflict(uuid.New(), EntityTypeOrder, "o-1", "a", "b")
		require.NoError(t, err)

		assert.Error(t, conflict.Resolve(ConflictResolutionPending))
		assert.True(t, conflict.IsPending())
	})

	t.Run("rejects unknown resolution", func(t *testing.T) {
		conflict, err := NewSyncConflict(uuid.New(), EntityTypeOrder, "o-1", "a", "b")
		require.NoError(t, err)

		assert.Error(t, conflict.Resolve(ConflictResolution("COIN_FLIP")))
		assert.True(t, conflict.IsPending())
	})
}
