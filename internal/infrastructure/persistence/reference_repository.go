package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormReferenceRepository implements sync.ReferenceRepository using GORM
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// Find returns the reference for the identity tuple
func (r *GormReferenceRepository) Find(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, source sync.Platform, sourceID string, target sync.Platform) (*sync.CrossSystemReference, error) {
	var model models.CrossSystemReferenceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND source_platform = ? AND source_id = ? AND target_platform = ?",
			tenantID, entityType, source, sourceID, target).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrReferenceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTargetID performs the reverse lookup by target id
func (r *GormReferenceRepository) FindByTargetID(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, target sync.Platform, targetID string) (*sync.CrossSystemReference, error) {
	var model models.CrossSystemReferenceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND target_platform = ? AND target_id = ?",
			tenantID, entityType, target, targetID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrReferenceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert atomically creates or refreshes the reference. The read-check-write
// runs inside one transaction; the unique index on the identity tuple backs
// it up against concurrent workers writing the same entity.
func (r *GormReferenceRepository) Upsert(ctx context.Context, ref *sync.CrossSystemReference) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CrossSystemReferenceModel
		err := tx.Where("tenant_id = ? AND entity_type = ? AND source_platform = ? AND source_id = ? AND target_platform = ?",
			ref.TenantID, ref.EntityType, ref.SourcePlatform, ref.SourceID, ref.TargetPlatform).
			First(&existing).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			model := &models.CrossSystemReferenceModel{}
			model.FromDomain(ref)
			return tx.Create(model).Error
		}
		return tx.Model(&existing).Updates(map[string]any{
			"target_id":      ref.TargetID,
			"content_hash":   ref.ContentHash,
			"last_synced_at": ref.LastSyncedAt,
			"updated_at":     ref.UpdatedAt,
		}).Error
	})
}

// DeleteForTenant removes all references for a tenant
func (r *GormReferenceRepository) DeleteForTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CrossSystemReferenceModel{}, "tenant_id = ?", tenantID).Error
}

// Ensure GormReferenceRepository implements sync.ReferenceRepository
var _ sync.ReferenceRepository = (*GormReferenceRepository)(nil)
