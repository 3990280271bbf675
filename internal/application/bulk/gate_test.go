package bulk

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/bulk"
)

type fakeTokenRepo struct {
	tokens map[string]*bulk.ConfirmationToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*bulk.ConfirmationToken)}
}

func (r *fakeTokenRepo) Save(_ context.Context, token *bulk.ConfirmationToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) Find(_ context.Context, tenantID uuid.UUID, token string) (*bulk.ConfirmationToken, error) {
	t, ok := r.tokens[token]
	if !ok || t.TenantID != tenantID {
		return nil, bulk.ErrTokenUnknown
	}
	return t, nil
}

type fakeAuditRepo struct {
	entries []bulk.AuditEntry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *bulk.AuditEntry) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListForTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]bulk.AuditEntry, error) {
	var out []bulk.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].TenantID == tenantID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func newTestGate() (*Gate, *fakeTokenRepo, *fakeAuditRepo) {
	tokens := newFakeTokenRepo()
	audit := &fakeAuditRepo{}
	gate := NewGate(tokens, audit, Thresholds{ConfirmRecordCount: 100, CriticalRecordCount: 1000}, zap.NewNop())
	return gate, tokens, audit
}

func TestGate_Assess(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("small operation passes through", func(t *testing.T) {
		gate, tokens, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "update prices", 99, false)
		require.NoError(t, err)
		assert.False(t, assessment.RequiresConfirmation)
		assert.Empty(t, assessment.Token)
		assert.Empty(t, tokens.tokens)
	})

	t.Run("threshold requires confirmation", func(t *testing.T) {
		gate, tokens, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "update prices", 100, false)
		require.NoError(t, err)
		assert.True(t, assessment.RequiresConfirmation)
		assert.NotEmpty(t, assessment.Token)
		require.NotNil(t, assessment.ExpiresAt)
		assert.Empty(t, assessment.Warning)
		assert.Contains(t, tokens.tokens, assessment.Token)
	})

	t.Run("critical count adds backup warning", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "update prices", 1000, false)
		require.NoError(t, err)
		assert.True(t, assessment.RequiresConfirmation)
		assert.NotEmpty(t, assessment.Warning)
	})

	t.Run("destructive always requires confirmation", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "delete customers", 1, true)
		require.NoError(t, err)
		assert.True(t, assessment.RequiresConfirmation)
	})
}

func TestGate_Confirm(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("valid token consumed and audited", func(t *testing.T) {
		gate, tokens, audit := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "delete customers", 500, true)
		require.NoError(t, err)

		require.NoError(t, gate.Confirm(ctx, tenantID, assessment.Token, "delete customers"))
		assert.True(t, tokens.tokens[assessment.Token].Consumed)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, "delete customers", audit.entries[0].Operation)
		assert.Equal(t, 500, audit.entries[0].RecordCount)
		assert.True(t, audit.entries[0].Destructive)
	})

	t.Run("single use", func(t *testing.T) {
		gate, _, audit := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "op", 500, false)
		require.NoError(t, err)

		require.NoError(t, gate.Confirm(ctx, tenantID, assessment.Token, "op"))
		assert.ErrorIs(t, gate.Confirm(ctx, tenantID, assessment.Token, "op"), bulk.ErrTokenConsumed)
		assert.Len(t, audit.entries, 1)
	})

	t.Run("operation mismatch", func(t *testing.T) {
		gate, _, audit := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "update prices", 500, false)
		require.NoError(t, err)

		err = gate.Confirm(ctx, tenantID, assessment.Token, "delete customers")
		assert.ErrorIs(t, err, ErrOperationMismatch)
		assert.Empty(t, audit.entries)
	})

	t.Run("expired token", func(t *testing.T) {
		gate, tokens, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "op", 500, false)
		require.NoError(t, err)
		tokens.tokens[assessment.Token].ExpiresAt = time.Now().Add(-time.Minute)

		assert.ErrorIs(t, gate.Confirm(ctx, tenantID, assessment.Token, "op"), bulk.ErrTokenExpired)
	})

	t.Run("unknown token", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assert.ErrorIs(t, gate.Confirm(ctx, tenantID, "nope", "op"), bulk.ErrTokenUnknown)
	})

	t.Run("foreign tenant token", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assessment, err := gate.Assess(ctx, tenantID, "op", 500, false)
		require.NoError(t, err)

		assert.ErrorIs(t, gate.Confirm(ctx, uuid.New(), assessment.Token, "op"), bulk.ErrTokenUnknown)
	})
}

func TestGate_AuditTrail(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	gate, _, _ := newTestGate()

	for i := 0; i < 3; i++ {
		assessment, err := gate.Assess(ctx, tenantID, "op", 500, false)
		require.NoError(t, err)
		require.NoError(t, gate.Confirm(ctx, tenantID, assessment.Token, "op"))
	}

	entries, err := gate.AuditTrail(ctx, tenantID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Zero limit falls back to the default page size.
	entries, err = gate.AuditTrail(ctx, tenantID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNewGate_DefaultThresholds(t *testing.T) {
	gate := NewGate(newFakeTokenRepo(), &fakeAuditRepo{}, Thresholds{}, zap.NewNop())
	assert.Equal(t, DefaultThresholds(), gate.thresholds)
}
