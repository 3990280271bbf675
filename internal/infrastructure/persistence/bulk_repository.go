package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/bulk"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// GormTokenRepository implements bulk.TokenRepository using GORM
type GormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GormTokenRepository
func NewGormTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Save creates or updates a token
func (r *GormTokenRepository) Save(ctx context.Context, token *bulk.ConfirmationToken) error {
	model := &models.ConfirmationTokenModel{}
	model.FromDomain(token)
	return r.db.WithContext(ctx).Save(model).Error
}

// Find returns the token scoped to a tenant
func (r *GormTokenRepository) Find(ctx context.Context, tenantID uuid.UUID, token string) (*bulk.ConfirmationToken, error) {
	var model models.ConfirmationTokenModel
	if err := r.db.WithContext(ctx).
		First(&model, "token = ? AND tenant_id = ?", token, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bulk.ErrTokenUnknown
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormTokenRepository implements bulk.TokenRepository
var _ bulk.TokenRepository = (*GormTokenRepository)(nil)

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

// GormAuditRepository implements bulk.AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes an entry. The audit log has no update or delete path.
func (r *GormAuditRepository) Append(ctx context.Context, entry *bulk.AuditEntry) error {
	model := &models.AuditLogModel{}
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListForTenant returns entries for a tenant, newest first
func (r *GormAuditRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]bulk.AuditEntry, error) {
	var entryModels []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]bulk.AuditEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditRepository implements bulk.AuditRepository
var _ bulk.AuditRepository = (*GormAuditRepository)(nil)
