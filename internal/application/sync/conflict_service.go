package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// ConflictService lets operators inspect and settle pending sync conflicts.
// Resolving a conflict unblocks the entity; the chosen side takes effect on
// the next run, when the direction controller no longer finds a pending
// conflict for it.
type ConflictService struct {
	conflicts sync.SyncConflictRepository
	logger    *zap.Logger
}

// NewConflictService creates a conflict service
func NewConflictService(conflicts sync.SyncConflictRepository, log *zap.Logger) *ConflictService {
	return &ConflictService{conflicts: conflicts, logger: log}
}

// ListPending returns all unresolved conflicts for a tenant
func (s *ConflictService) ListPending(ctx context.Context, tenantID uuid.UUID) ([]sync.SyncConflict, error) {
	return s.conflicts.ListPending(ctx, tenantID)
}

// GetConflict returns one conflict
func (s *ConflictService) GetConflict(ctx context.Context, tenantID, conflictID uuid.UUID) (*sync.SyncConflict, error) {
	return s.conflicts.FindByID(ctx, tenantID, conflictID)
}

// Resolve settles a pending conflict with the operator's decision. A
// conflict resolves exactly once; resolving an already settled conflict
// returns ErrConflictAlreadyResolved.
func (s *ConflictService) Resolve(ctx context.Context, tenantID, conflictID uuid.UUID, resolution sync.ConflictResolution) (*sync.SyncConflict, error) {
	conflict, err := s.conflicts.FindByID(ctx, tenantID, conflictID)
	if err != nil {
		return nil, err
	}
	if err := conflict.Resolve(resolution); err != nil {
		return nil, err
	}
	if err := s.conflicts.Save(ctx, conflict); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Sync conflict resolved",
		zap.String("conflict_id", conflict.ID.String()),
		zap.String("entity_type", conflict.EntityType.String()),
		zap.String("source_id", conflict.SourceID),
		zap.String("resolution", string(resolution)),
	)
	return conflict, nil
}
