package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// ConfigService manages per-tenant entity sync configuration.
type ConfigService struct {
	configs sync.EntitySyncConfigRepository
	logger  *zap.Logger
}

// NewConfigService creates a config service
func NewConfigService(configs sync.EntitySyncConfigRepository, log *zap.Logger) *ConfigService {
	return &ConfigService{configs: configs, logger: log}
}

// GetConfig returns the effective config for an entity type, falling back
// to the defaults when the tenant has not configured it
func (s *ConfigService) GetConfig(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType) (*sync.EntitySyncConfig, error) {
	cfg, err := s.configs.Find(ctx, tenantID, entityType)
	if err != nil {
		if errors.Is(err, sync.ErrSyncConfigNotFound) {
			return sync.DefaultEntitySyncConfig(tenantID, entityType), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ListConfigs returns all stored configs for a tenant
func (s *ConfigService) ListConfigs(ctx context.Context, tenantID uuid.UUID) ([]sync.EntitySyncConfig, error) {
	return s.configs.ListForTenant(ctx, tenantID)
}

// UpdateConfig validates and persists a config change. The change applies
// from the next run; a run in flight keeps the config it started with.
func (s *ConfigService) UpdateConfig(ctx context.Context, cfg *sync.EntitySyncConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return err
	}
	logger.L(ctx).Info("Entity sync config updated",
		zap.String("entity_type", cfg.EntityType.String()),
		zap.String("direction", string(cfg.Direction)),
		zap.String("conflict_strategy", string(cfg.ConflictStrategy)),
	)
	return nil
}
