package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/retailops/backend/internal/domain/sync"
)

var (
	ErrMappingNotFound        = errors.New("mapping: field mapping not found")
	ErrMappingInvalidTenantID = errors.New("mapping: invalid tenant ID")
	ErrMappingInvalidRoute    = errors.New("mapping: invalid route")
	ErrMappingNoFieldMaps     = errors.New("mapping: at least one field map is required")
	ErrMappingAlreadyActive   = errors.New("mapping: another mapping is already active for this route and entity type")
)

// ---------------------------------------------------------------------------
// FieldMap / TransformationSpec value objects
// ---------------------------------------------------------------------------

// FieldMap maps one source path to one target path. Paths use dot-notation
// for nested objects; an IsArray field map applies its ItemMaps to every
// element of the source array and collects a target array.
type FieldMap struct {
	// SourcePath locates the value in the source entity
	SourcePath string `json:"source_path"`
	// TargetPath locates the slot in the target payload
	TargetPath string `json:"target_path"`
	// Required field maps must resolve to a non-null value or carry a
	// default; otherwise the transform of the whole entity fails closed
	Required bool `json:"required"`
	// DefaultValue substitutes a missing source value (nil = no default)
	DefaultValue any `json:"default_value,omitempty"`
	// IsArray marks a map-over-each-element field map
	IsArray bool `json:"is_array"`
	// ItemMaps define the per-element mapping of an array field map
	ItemMaps []FieldMap `json:"item_maps,omitempty"`
}

// Validate checks structural consistency of the field map
func (f *FieldMap) Validate() error {
	if f.SourcePath == "" {
		return errors.New("mapping: field map source path is required")
	}
	if f.TargetPath == "" {
		return errors.New("mapping: field map target path is required")
	}
	if f.IsArray && len(f.ItemMaps) == 0 {
		return fmt.Errorf("mapping: array field map %q has no item maps", f.SourcePath)
	}
	for i := range f.ItemMaps {
		if err := f.ItemMaps[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TransformationSpec invokes a named registered function on the value at
// SourcePath before assignment to the target path of the same field map.
type TransformationSpec struct {
	// SourcePath identifies the field map whose value is transformed
	SourcePath string `json:"source_path"`
	// Function is the registered transformation name
	Function string `json:"function"`
	// Args are the ordered function arguments
	Args []string `json:"args,omitempty"`
}

// ---------------------------------------------------------------------------
// FieldMapping aggregate
// ---------------------------------------------------------------------------

// FieldMapping declares, for one (route, entity type), which fields
// correspond and with what transformations. Exactly one mapping is active
// per (tenant, route, entity type) at a time; the uniqueness is enforced
// transactionally at save time, not in memory.
type FieldMapping struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	Route           sync.Route
	EntityType      sync.EntityType
	FieldMaps       []FieldMap
	Transformations []TransformationSpec
	IsActive        bool
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewFieldMapping creates an inactive field mapping
func NewFieldMapping(tenantID uuid.UUID, name string, route sync.Route, entityType sync.EntityType, fieldMaps []FieldMap, transformations []TransformationSpec) (*FieldMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMappingInvalidTenantID
	}
	if err := route.Validate(); err != nil {
		return nil, ErrMappingInvalidRoute
	}
	if !entityType.IsValid() {
		return nil, sync.ErrInvalidEntityType
	}
	if len(fieldMaps) == 0 {
		return nil, ErrMappingNoFieldMaps
	}
	for i := range fieldMaps {
		if err := fieldMaps[i].Validate(); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	return &FieldMapping{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Name:            name,
		Route:           route,
		EntityType:      entityType,
		FieldMaps:       fieldMaps,
		Transformations: transformations,
		IsActive:        false,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// TransformationsFor returns the ordered transformations declared for a
// source path
func (m *FieldMapping) TransformationsFor(sourcePath string) []TransformationSpec {
	var specs []TransformationSpec
	for _, t := range m.Transformations {
		if t.SourcePath == sourcePath {
			specs = append(specs, t)
		}
	}
	return specs
}

// Activate marks the mapping active. The repository save enforces the
// one-active-per-(tenant, route, entity type) invariant transactionally.
func (m *FieldMapping) Activate() {
	m.IsActive = true
	m.Version++
	m.UpdatedAt = time.Now()
}

// Deactivate marks the mapping inactive
func (m *FieldMapping) Deactivate() {
	m.IsActive = false
	m.Version++
	m.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Repository persists field mappings.
type Repository interface {
	// Save creates or updates a mapping. Saving an active mapping while a
	// different active mapping exists for the same (tenant, route, entity
	// type) fails with ErrMappingAlreadyActive; the check and write execute
	// in one transaction.
	Save(ctx context.Context, m *FieldMapping) error

	// FindByID returns a mapping scoped to a tenant, or ErrMappingNotFound
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FieldMapping, error)

	// FindActive returns the active mapping for (tenant, route, entityType),
	// or ErrMappingNotFound
	FindActive(ctx context.Context, tenantID uuid.UUID, route sync.Route, entityType sync.EntityType) (*FieldMapping, error)

	// ListForTenant returns all mappings for a tenant
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]FieldMapping, error)

	// Delete removes a mapping
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
