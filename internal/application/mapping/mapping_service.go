package mapping

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// Service manages field mapping configuration. Every save validates the
// mapping against the declared platform schemas; activation relies on the
// repository's transactional one-active-per-(tenant, route, entity type)
// constraint so multiple instances stay consistent.
type Service struct {
	repo      mapping.Repository
	validator *mapping.Validator
	logger    *zap.Logger
}

// NewService creates a mapping service
func NewService(repo mapping.Repository, validator *mapping.Validator, log *zap.Logger) *Service {
	return &Service{repo: repo, validator: validator, logger: log}
}

// CreateMapping validates and persists a new, inactive mapping. Validation
// defects are returned to the caller; an invalid mapping is never saved.
func (s *Service) CreateMapping(ctx context.Context, tenantID uuid.UUID, name string, route sync.Route, entityType sync.EntityType, fieldMaps []mapping.FieldMap, transformations []mapping.TransformationSpec) (*mapping.FieldMapping, []mapping.ValidationError, error) {
	m, err := mapping.NewFieldMapping(tenantID, name, route, entityType, fieldMaps, transformations)
	if err != nil {
		return nil, nil, err
	}
	if verrs := s.validator.Validate(m); len(verrs) > 0 {
		return nil, verrs, nil
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, nil, err
	}
	logger.L(ctx).Info("Field mapping created",
		zap.String("mapping_id", m.ID.String()),
		zap.String("route", m.Route.String()),
		zap.String("entity_type", m.EntityType.String()),
		zap.Int("field_maps", len(m.FieldMaps)),
	)
	return m, nil, nil
}

// ActivateMapping re-validates and activates a mapping. The repository save
// rejects the activation when a different active mapping exists for the
// same (tenant, route, entity type).
func (s *Service) ActivateMapping(ctx context.Context, tenantID, mappingID uuid.UUID) ([]mapping.ValidationError, error) {
	m, err := s.repo.FindByID(ctx, tenantID, mappingID)
	if err != nil {
		return nil, err
	}
	if verrs := s.validator.Validate(m); len(verrs) > 0 {
		return verrs, nil
	}
	m.Activate()
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Field mapping activated",
		zap.String("mapping_id", m.ID.String()),
		zap.String("route", m.Route.String()),
	)
	return nil, nil
}

// DeactivateMapping deactivates a mapping
func (s *Service) DeactivateMapping(ctx context.Context, tenantID, mappingID uuid.UUID) error {
	m, err := s.repo.FindByID(ctx, tenantID, mappingID)
	if err != nil {
		return err
	}
	m.Deactivate()
	return s.repo.Save(ctx, m)
}

// GetMapping returns a mapping by id
func (s *Service) GetMapping(ctx context.Context, tenantID, mappingID uuid.UUID) (*mapping.FieldMapping, error) {
	return s.repo.FindByID(ctx, tenantID, mappingID)
}

// ListMappings returns all mappings for a tenant
func (s *Service) ListMappings(ctx context.Context, tenantID uuid.UUID) ([]mapping.FieldMapping, error) {
	return s.repo.ListForTenant(ctx, tenantID)
}

// DeleteMapping removes a mapping
func (s *Service) DeleteMapping(ctx context.Context, tenantID, mappingID uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, mappingID)
}
