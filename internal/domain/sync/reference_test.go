package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCrossSystemReference(t *testing.T) {
	tenantID := uuid.New()

	t.Run("success", func(t *testing.T) {
		ref, err := NewCrossSystemReference(tenantID, EntityTypeCustomer,
			PlatformInternal, "cust-1", PlatformStorefront, "sf-99", "abc123")
		require.NoError(t, err)
		assert.Equal(t, tenantID, ref.TenantID)
		assert.Equal(t, "cust-1", ref.SourceID)
		assert.Equal(t, "sf-99", ref.TargetID)
		assert.Equal(t, "abc123", ref.ContentHash)
		assert.False(t, ref.LastSyncedAt.IsZero())
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewCrossSystemReference(uuid.Nil, EntityTypeCustomer,
			PlatformInternal, "cust-1", PlatformStorefront, "sf-99", "")
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		_, err := NewCrossSystemReference(tenantID, EntityType("NOPE"),
			PlatformInternal, "cust-1", PlatformStorefront, "sf-99", "")
		assert.ErrorIs(t, err, ErrInvalidEntityType)
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := NewCrossSystemReference(tenantID, EntityTypeCustomer,
			PlatformInternal, "", PlatformStorefront, "sf-99", "")
		assert.Error(t, err)

		_, err = NewCrossSystemReference(tenantID, EntityTypeCustomer,
			PlatformInternal, "cust-1", PlatformStorefront, "", "")
		assert.Error(t, err)
	})
}

func TestCrossSystemReference_RecordSync(t *testing.T) {
	ref, err := NewCrossSystemReference(uuid.New(), EntityTypeProduct,
		PlatformInternal, "p-1", PlatformAccounting, "acct-7", "old")
	require.NoError(t, err)

	before := ref.LastSyncedAt
	time.Sleep(time.Millisecond)
	ref.RecordSync("new")

	assert.Equal(t, "new", ref.ContentHash)
	assert.True(t, ref.LastSyncedAt.After(before))
}

func TestContentHashOf(t *testing.T) {
	t.Run("insertion order independent", func(t *testing.T) {
		a, err := ContentHashOf(map[string]any{"name": "Ada", "email": "ada@example.com"})
		require.NoError(t, err)
		b, err := ContentHashOf(map[string]any{"email": "ada@example.com", "name": "Ada"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("value sensitive", func(t *testing.T) {
		a, err := ContentHashOf(map[string]any{"name": "Ada"})
		require.NoError(t, err)
		b, err := ContentHashOf(map[string]any{"name": "Grace"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("nested payloads", func(t *testing.T) {
		a, err := ContentHashOf(map[string]any{
			"address": map[string]any{"city": "Lyon", "zip": "69001"},
		})
		require.NoError(t, err)
		b, err := ContentHashOf(map[string]any{
			"address": map[string]any{"zip": "69001", "city": "Lyon"},
		})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		_, err := ContentHashOf(map[string]any{"fn": func() {}})
		assert.Error(t, err)
	})
}
