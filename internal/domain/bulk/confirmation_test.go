package bulk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfirmationToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		token, err := NewConfirmationToken(uuid.New(), "delete inactive customers", 500, true)
		require.NoError(t, err)
		assert.Len(t, token.Token, 32)
		assert.Equal(t, 500, token.RecordCount)
		assert.True(t, token.Destructive)
		assert.False(t, token.Consumed)
		assert.Equal(t, TokenValidity, token.ExpiresAt.Sub(token.IssuedAt))
	})

	t.Run("unique tokens", func(t *testing.T) {
		a, err := NewConfirmationToken(uuid.New(), "op", 1, false)
		require.NoError(t, err)
		b, err := NewConfirmationToken(uuid.New(), "op", 1, false)
		require.NoError(t, err)
		assert.NotEqual(t, a.Token, b.Token)
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewConfirmationToken(uuid.Nil, "op", 1, false)
		assert.Error(t, err)
	})

	t.Run("empty description", func(t *testing.T) {
		_, err := NewConfirmationToken(uuid.New(), "", 1, false)
		assert.Error(t, err)
	})
}

func TestConfirmationToken_Consume(t *testing.T) {
	t.Run("single use", func(t *testing.T) {
		token, err := NewConfirmationToken(uuid.New(), "bulk price update", 200, false)
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, token.Consume(now))
		assert.True(t, token.Consumed)
		require.NotNil(t, token.ConsumedAt)
		assert.Equal(t, now, *token.ConsumedAt)

		assert.ErrorIs(t, token.Consume(now), ErrTokenConsumed)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := NewConfirmationToken(uuid.New(), "bulk price update", 200, false)
		require.NoError(t, err)

		late := token.ExpiresAt.Add(time.Second)
		assert.ErrorIs(t, token.Consume(late), ErrTokenExpired)
		assert.False(t, token.Consumed)
	})

	t.Run("consumed wins over expired", func(t *testing.T) {
		token, err := NewConfirmationToken(uuid.New(), "op", 1, false)
		require.NoError(t, err)
		require.NoError(t, token.Consume(time.Now()))

		assert.ErrorIs(t, token.Consume(token.ExpiresAt.Add(time.Hour)), ErrTokenConsumed)
	})
}

func TestConfirmationToken_IsExpired(t *testing.T) {
	token, err := NewConfirmationToken(uuid.New(), "op", 1, false)
	require.NoError(t, err)

	assert.False(t, token.IsExpired(token.IssuedAt))
	assert.False(t, token.IsExpired(token.ExpiresAt))
	assert.True(t, token.IsExpired(token.ExpiresAt.Add(time.Nanosecond)))
}

func TestNewAuditEntry(t *testing.T) {
	tenantID := uuid.New()
	entry := NewAuditEntry(tenantID, "purge references", 1200, true, "tok-1")

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, tenantID, entry.TenantID)
	assert.Equal(t, "purge references", entry.Operation)
	assert.Equal(t, 1200, entry.RecordCount)
	assert.True(t, entry.Destructive)
	assert.Equal(t, "tok-1", entry.Token)
	assert.False(t, entry.OccurredAt.IsZero())
}
