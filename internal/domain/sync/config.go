package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSyncConfigNotFound = errors.New("sync: entity sync config not found")

// ---------------------------------------------------------------------------
// Direction / SourceOfTruth / ConflictStrategy / ClockAuthority
// ---------------------------------------------------------------------------

// Direction declares whether an entity type syncs one way or both ways.
type Direction string

const (
	DirectionOneWay Direction = "ONE_WAY"
	DirectionTwoWay Direction = "TWO_WAY"
)

// IsValid returns true if the direction is known
func (d Direction) IsValid() bool {
	return d == DirectionOneWay || d == DirectionTwoWay
}

// SourceOfTruth designates which side wins automatic conflict resolution.
type SourceOfTruth string

const (
	SourceOfTruthInternal SourceOfTruth = "INTERNAL"
	SourceOfTruthExternal SourceOfTruth = "EXTERNAL"
)

// IsValid returns true if the source of truth is known
func (s SourceOfTruth) IsValid() bool {
	return s == SourceOfTruthInternal || s == SourceOfTruthExternal
}

// ConflictStrategy selects how concurrent edits are resolved.
type ConflictStrategy string

const (
	ConflictStrategySourceWins ConflictStrategy = "SOURCE_WINS"
	ConflictStrategyTargetWins ConflictStrategy = "TARGET_WINS"
	ConflictStrategyNewestWins ConflictStrategy = "NEWEST_WINS"
	ConflictStrategyManual     ConflictStrategy = "MANUAL"
)

// IsValid returns true if the strategy is known
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case ConflictStrategySourceWins, ConflictStrategyTargetWins, ConflictStrategyNewestWins, ConflictStrategyManual:
		return true
	default:
		return false
	}
}

// ClockAuthority declares whose last-modified timestamp is authoritative
// when the internal and external clocks disagree under NEWEST_WINS.
type ClockAuthority string

const (
	ClockAuthorityInternal ClockAuthority = "INTERNAL"
	ClockAuthorityExternal ClockAuthority = "EXTERNAL"
)

// IsValid returns true if the clock authority is known
func (c ClockAuthority) IsValid() bool {
	return c == ClockAuthorityInternal || c == ClockAuthorityExternal
}

// ---------------------------------------------------------------------------
// EntitySyncConfig
// ---------------------------------------------------------------------------

// EntitySyncConfig governs the direction controller for one entity type.
// It is mutable tenant configuration and is read at the start of each run.
type EntitySyncConfig struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	EntityType       EntityType
	Direction        Direction
	SourceOfTruth    SourceOfTruth
	ConflictStrategy ConflictStrategy
	ClockAuthority   ClockAuthority
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewEntitySyncConfig creates a validated config
func NewEntitySyncConfig(tenantID uuid.UUID, entityType EntityType, direction Direction, sourceOfTruth SourceOfTruth, strategy ConflictStrategy) (*EntitySyncConfig, error) {
	cfg := &EntitySyncConfig{
		ID:               uuid.New(),
		TenantID:         tenantID,
		EntityType:       entityType,
		Direction:        direction,
		SourceOfTruth:    sourceOfTruth,
		ConflictStrategy: strategy,
		ClockAuthority:   ClockAuthorityInternal,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the config
func (c *EntitySyncConfig) Validate() error {
	if c.TenantID == uuid.Nil {
		return ErrInvalidTenantID
	}
	if !c.EntityType.IsValid() {
		return ErrInvalidEntityType
	}
	if !c.Direction.IsValid() {
		return errors.New("sync: invalid direction")
	}
	if !c.SourceOfTruth.IsValid() {
		return errors.New("sync: invalid source of truth")
	}
	if !c.ConflictStrategy.IsValid() {
		return errors.New("sync: invalid conflict strategy")
	}
	if !c.ClockAuthority.IsValid() {
		return errors.New("sync: invalid clock authority")
	}
	return nil
}

// DefaultEntitySyncConfig returns the behavior used when a tenant has not
// configured an entity type: one-way, internal source of truth, source wins.
func DefaultEntitySyncConfig(tenantID uuid.UUID, entityType EntityType) *EntitySyncConfig {
	return &EntitySyncConfig{
		ID:               uuid.New(),
		TenantID:         tenantID,
		EntityType:       entityType,
		Direction:        DirectionOneWay,
		SourceOfTruth:    SourceOfTruthInternal,
		ConflictStrategy: ConflictStrategySourceWins,
		ClockAuthority:   ClockAuthorityInternal,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// EntitySyncConfigRepository persists per-tenant sync configs.
type EntitySyncConfigRepository interface {
	// Find returns the config for (tenant, entityType), or ErrSyncConfigNotFound
	Find(ctx context.Context, tenantID uuid.UUID, entityType EntityType) (*EntitySyncConfig, error)

	// Save creates or updates a config
	Save(ctx context.Context, cfg *EntitySyncConfig) error

	// ListForTenant returns all configs for a tenant
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]EntitySyncConfig, error)
}
