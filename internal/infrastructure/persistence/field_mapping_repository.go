package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormFieldMappingRepository implements mapping.Repository using GORM
type GormFieldMappingRepository struct {
	db *gorm.DB
}

// NewGormFieldMappingRepository creates a new GormFieldMappingRepository
func NewGormFieldMappingRepository(db *gorm.DB) *GormFieldMappingRepository {
	return &GormFieldMappingRepository{db: db}
}

// Save creates or updates a mapping. The one-active-per-(tenant, route,
// entity type) check and the write run in one transaction so two instances
// cannot both activate a mapping for the same scope.
func (r *GormFieldMappingRepository) Save(ctx context.Context, m *mapping.FieldMapping) error {
	model := models.FieldMappingModelFromDomain(m)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.IsActive {
			var count int64
			if err := tx.Model(&models.FieldMappingModel{}).
				Where("tenant_id = ? AND source_platform = ? AND target_platform = ? AND entity_type = ? AND is_active = ? AND id <> ?",
					m.TenantID, m.Route.Source, m.Route.Target, m.EntityType, true, m.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return mapping.ErrMappingAlreadyActive
			}
		}
		return tx.Save(model).Error
	})
}

// FindByID finds a mapping by ID within a tenant
func (r *GormFieldMappingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*mapping.FieldMapping, error) {
	var model models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the active mapping for (tenant, route, entityType)
func (r *GormFieldMappingRepository) FindActive(ctx context.Context, tenantID uuid.UUID, route sync.Route, entityType sync.EntityType) (*mapping.FieldMapping, error) {
	var model models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_platform = ? AND target_platform = ? AND entity_type = ? AND is_active = ?",
			tenantID, route.Source, route.Target, entityType, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListForTenant returns all mappings for a tenant
func (r *GormFieldMappingRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]mapping.FieldMapping, error) {
	var mappingModels []models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	mappings := make([]mapping.FieldMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Delete removes a mapping
func (r *GormFieldMappingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.FieldMappingModel{}, "id = ? AND tenant_id = ?", id, tenantID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mapping.ErrMappingNotFound
	}
	return nil
}

// Ensure GormFieldMappingRepository implements mapping.Repository
var _ mapping.Repository = (*GormFieldMappingRepository)(nil)
