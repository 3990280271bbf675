package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormSyncConfigRepository implements sync.EntitySyncConfigRepository using GORM
type GormSyncConfigRepository struct {
	db *gorm.DB
}

// NewGormSyncConfigRepository creates a new GormSyncConfigRepository
func NewGormSyncConfigRepository(db *gorm.DB) *GormSyncConfigRepository {
	return &GormSyncConfigRepository{db: db}
}

// Find returns the config for (tenant, entityType)
func (r *GormSyncConfigRepository) Find(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType) (*sync.EntitySyncConfig, error) {
	var model models.EntitySyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ?", tenantID, entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a config. The unique index on (tenant, entity
// type) keeps one config per entity type; an update reuses the stored row id.
func (r *GormSyncConfigRepository) Save(ctx context.Context, cfg *sync.EntitySyncConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EntitySyncConfigModel
		err := tx.Where("tenant_id = ? AND entity_type = ?", cfg.TenantID, cfg.EntityType).
			First(&existing).Error
		if err == nil {
			cfg.ID = existing.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		model := &models.EntitySyncConfigModel{}
		model.FromDomain(cfg)
		return tx.Save(model).Error
	})
}

// ListForTenant returns all configs for a tenant
func (r *GormSyncConfigRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]sync.EntitySyncConfig, error) {
	var configModels []models.EntitySyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("entity_type ASC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	configs := make([]sync.EntitySyncConfig, len(configModels))
	for i, model := range configModels {
		configs[i] = *model.ToDomain()
	}
	return configs, nil
}

// Ensure GormSyncConfigRepository implements sync.EntitySyncConfigRepository
var _ sync.EntitySyncConfigRepository = (*GormSyncConfigRepository)(nil)
