package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements sync.SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save creates or updates a run
func (r *GormSyncRunRepository) Save(ctx context.Context, run *sync.SyncRun) error {
	model := &models.SyncRunModel{}
	model.FromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID returns a run scoped to a tenant
func (r *GormSyncRunRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sync.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLastSuccessful returns the most recent completed non-dry run for
// (tenant, route, entityType). Its completion time is the incremental
// watermark for the next run.
func (r *GormSyncRunRepository) FindLastSuccessful(ctx context.Context, tenantID uuid.UUID, route sync.Route, entityType sync.EntityType) (*sync.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_platform = ? AND target_platform = ? AND entity_type = ? AND status = ? AND dry_run = ?",
			tenantID, route.Source, route.Target, entityType, sync.RunStatusCompleted, false).
		Order("finished_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns run history for a tenant
func (r *GormSyncRunRepository) List(ctx context.Context, tenantID uuid.UUID, filter sync.RunListFilter) ([]sync.SyncRun, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Route != nil {
		query = query.Where("source_platform = ? AND target_platform = ?", filter.Route.Source, filter.Route.Target)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var runModels []models.SyncRunModel
	if err := query.Order("created_at DESC").Find(&runModels).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]sync.SyncRun, len(runModels))
	for i, model := range runModels {
		runs[i] = *model.ToDomain()
	}
	return runs, total, nil
}

// Ensure GormSyncRunRepository implements sync.SyncRunRepository
var _ sync.SyncRunRepository = (*GormSyncRunRepository)(nil)
