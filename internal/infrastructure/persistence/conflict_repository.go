package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormConflictRepository implements sync.SyncConflictRepository using GORM
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// Save creates or updates a conflict
func (r *GormConflictRepository) Save(ctx context.Context, conflict *sync.SyncConflict) error {
	model := &models.SyncConflictModel{}
	model.FromDomain(conflict)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID returns a conflict scoped to a tenant
func (r *GormConflictRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sync.SyncConflict, error) {
	var model models.SyncConflictModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrConflictNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending returns the pending conflict for an entity
func (r *GormConflictRepository) FindPending(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, sourceID string) (*sync.SyncConflict, error) {
	var model models.SyncConflictModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND source_id = ? AND resolution = ?",
			tenantID, entityType, sourceID, sync.ConflictResolutionPending).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrConflictNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListPending returns all pending conflicts for a tenant, oldest first
func (r *GormConflictRepository) ListPending(ctx context.Context, tenantID uuid.UUID) ([]sync.SyncConflict, error) {
	var conflictModels []models.SyncConflictModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resolution = ?", tenantID, sync.ConflictResolutionPending).
		Order("detected_at ASC").
		Find(&conflictModels).Error; err != nil {
		return nil, err
	}
	conflicts := make([]sync.SyncConflict, len(conflictModels))
	for i, model := range conflictModels {
		conflicts[i] = *model.ToDomain()
	}
	return conflicts, nil
}

// Ensure GormConflictRepository implements sync.SyncConflictRepository
var _ sync.SyncConflictRepository = (*GormConflictRepository)(nil)
