package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictStrategy_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		strategy ConflictStrategy
		want     bool
	}{
		{"source wins", ConflictStrategySourceWins, true},
		{"target wins", ConflictStrategyTargetWins, true},
		{"newest wins", ConflictStrategyNewestWins, true},
		{"manual", ConflictStrategyManual, true},
		{"invalid", ConflictStrategy("OLDEST_WINS"), false},
		{"empty", ConflictStrategy(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.IsValid())
		})
	}
}

func TestNewEntitySyncConfig(t *testing.T) {
	tenantID := uuid.New()

	t.Run("success", func(t *testing.T) {
		cfg, err := NewEntitySyncConfig(tenantID, EntityTypeProduct,
			DirectionTwoWay, SourceOfTruthExternal, ConflictStrategyNewestWins)
		require.NoError(t, err)
		assert.Equal(t, DirectionTwoWay, cfg.Direction)
		assert.Equal(t, ClockAuthorityInternal, cfg.ClockAuthority)
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewEntitySyncConfig(uuid.Nil, EntityTypeProduct,
			DirectionOneWay, SourceOfTruthInternal, ConflictStrategySourceWins)
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := NewEntitySyncConfig(tenantID, EntityTypeProduct,
			Direction("THREE_WAY"), SourceOfTruthInternal, ConflictStrategySourceWins)
		assert.Error(t, err)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		_, err := NewEntitySyncConfig(tenantID, EntityTypeProduct,
			DirectionOneWay, SourceOfTruthInternal, ConflictStrategy(""))
		assert.Error(t, err)
	})
}

func TestEntitySyncConfig_Validate(t *testing.T) {
	cfg, err := NewEntitySyncConfig(uuid.New(), EntityTypeInvoice,
		DirectionOneWay, SourceOfTruthInternal, ConflictStrategyManual)
	require.NoError(t, err)

	cfg.ClockAuthority = ClockAuthority("ATOMIC")
	assert.Error(t, cfg.Validate())

	cfg.ClockAuthority = ClockAuthorityExternal
	assert.NoError(t, cfg.Validate())
}

func TestDefaultEntitySyncConfig(t *testing.T) {
	cfg := DefaultEntitySyncConfig(uuid.New(), EntityTypeCustomer)

	assert.Equal(t, DirectionOneWay, cfg.Direction)
	assert.Equal(t, SourceOfTruthInternal, cfg.SourceOfTruth)
	assert.Equal(t, ConflictStrategySourceWins, cfg.ConflictStrategy)
	assert.Equal(t, ClockAuthorityInternal, cfg.ClockAuthority)
	assert.NoError(t, cfg.Validate())
}
