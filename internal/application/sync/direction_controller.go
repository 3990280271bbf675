package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// Decision is the direction controller's verdict for one entity.
type Decision string

const (
	// DecisionProceed lets the write go ahead
	DecisionProceed Decision = "PROCEED"
	// DecisionSkip suppresses a no-op or losing-side write
	DecisionSkip Decision = "SKIP_ALREADY_SYNCED"
	// DecisionConflict blocks the entity until an operator resolves it
	DecisionConflict Decision = "CONFLICT"
)

// ChangeState carries the facts the controller needs about one entity.
type ChangeState struct {
	// Reference is the stored cross-system reference, nil for first sync
	Reference *sync.CrossSystemReference
	// NewHash is the content hash of the freshly transformed payload
	NewHash string
	// SourceModifiedAt is the source copy's last-modified timestamp
	SourceModifiedAt time.Time
	// TargetModifiedAt is the target copy's last-modified timestamp when
	// known; nil means the target copy could not be inspected
	TargetModifiedAt *time.Time
	// SourceIsInternal is true when the route syncs from the internal
	// system outward
	SourceIsInternal bool
}

// DirectionController decides, per entity, whether a sync should proceed,
// be skipped, or be escalated as a conflict. Hash comparison against the
// stored reference suppresses re-sync loops in two-way setups where a write
// back would otherwise re-trigger the same sync via webhook.
type DirectionController struct {
	conflicts sync.SyncConflictRepository
	logger    *zap.Logger
}

// NewDirectionController creates a direction controller
func NewDirectionController(conflicts sync.SyncConflictRepository, log *zap.Logger) *DirectionController {
	return &DirectionController{conflicts: conflicts, logger: log}
}

// ShouldSync evaluates one entity against its sync config and stored
// reference. Manual-strategy conflicts are persisted as pending and block
// only the entity itself.
func (c *DirectionController) ShouldSync(ctx context.Context, cfg *sync.EntitySyncConfig, sourceID string, state ChangeState) (Decision, error) {
	// A pending conflict blocks automatic sync of this entity until resolved.
	pending, err := c.conflicts.FindPending(ctx, cfg.TenantID, cfg.EntityType, sourceID)
	if err != nil && !errors.Is(err, sync.ErrConflictNotFound) {
		return DecisionSkip, err
	}
	if pending != nil {
		return DecisionConflict, nil
	}

	if state.Reference == nil {
		return DecisionProceed, nil
	}
	if state.NewHash == state.Reference.ContentHash {
		return DecisionSkip, nil
	}
	if cfg.Direction != sync.DirectionTwoWay {
		return DecisionProceed, nil
	}

	sourceChanged := state.SourceModifiedAt.After(state.Reference.LastSyncedAt)
	targetChanged := state.TargetModifiedAt != nil && state.TargetModifiedAt.After(state.Reference.LastSyncedAt)
	if !sourceChanged || !targetChanged {
		return DecisionProceed, nil
	}

	// Both sides changed since the last synced hash.
	switch cfg.ConflictStrategy {
	case sync.ConflictStrategySourceWins, sync.ConflictStrategyTargetWins:
		return c.resolveBySourceOfTruth(cfg, state), nil
	case sync.ConflictStrategyNewestWins:
		return c.resolveNewest(cfg, state), nil
	default:
		return c.raiseConflict(ctx, cfg, sourceID, state)
	}
}

// resolveBySourceOfTruth proceeds when the configured source of truth is
// the side the route writes from; otherwise the target copy is kept.
func (c *DirectionController) resolveBySourceOfTruth(cfg *sync.EntitySyncConfig, state ChangeState) Decision {
	truthIsInternal := cfg.SourceOfTruth == sync.SourceOfTruthInternal
	if truthIsInternal == state.SourceIsInternal {
		return DecisionProceed
	}
	return DecisionSkip
}

// resolveNewest compares last-modified timestamps. The configured clock
// authority decides which clock is trusted when the two disagree; ties fall
// back to the source of truth.
func (c *DirectionController) resolveNewest(cfg *sync.EntitySyncConfig, state ChangeState) Decision {
	if state.TargetModifiedAt == nil {
		return DecisionProceed
	}
	source, target := state.SourceModifiedAt, *state.TargetModifiedAt
	if cfg.ClockAuthority == sync.ClockAuthorityExternal {
		// Trust the external platform's clock: round the internal timestamp
		// down to its precision before comparing.
		source = source.Truncate(time.Second)
		target = target.Truncate(time.Second)
	}
	if source.After(target) {
		return DecisionProceed
	}
	if target.After(source) {
		return DecisionSkip
	}
	return c.resolveBySourceOfTruth(cfg, state)
}

// raiseConflict persists a pending conflict for manual resolution
func (c *DirectionController) raiseConflict(ctx context.Context, cfg *sync.EntitySyncConfig, sourceID string, state ChangeState) (Decision, error) {
	conflict, err := sync.NewSyncConflict(cfg.TenantID, cfg.EntityType, sourceID, state.NewHash, state.Reference.ContentHash)
	if err != nil {
		return DecisionSkip, err
	}
	if err := c.conflicts.Save(ctx, conflict); err != nil {
		return DecisionSkip, err
	}
	logger.L(ctx).Warn("Sync conflict detected, awaiting manual resolution",
		zap.String("entity_type", cfg.EntityType.String()),
		zap.String("source_id", sourceID),
		zap.String("conflict_id", conflict.ID.String()),
	)
	return DecisionConflict, nil
}
