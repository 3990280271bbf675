package dto

import (
	"time"

	"github.com/google/uuid"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/bulk"
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Field mappings
// ---------------------------------------------------------------------------

// FieldMapRequest describes one field correspondence
type FieldMapRequest struct {
	SourcePath   string            `json:"source_path" binding:"required"`
	TargetPath   string            `json:"target_path" binding:"required"`
	Required     bool              `json:"required"`
	DefaultValue any               `json:"default_value,omitempty"`
	IsArray      bool              `json:"is_array"`
	ItemMaps     []FieldMapRequest `json:"item_maps,omitempty"`
}

// TransformationRequest describes one transformation applied to a field map
type TransformationRequest struct {
	SourcePath string   `json:"source_path" binding:"required"`
	Function   string   `json:"function" binding:"required"`
	Args       []string `json:"args,omitempty"`
}

// CreateMappingRequest creates a new, inactive field mapping
type CreateMappingRequest struct {
	Name            string                  `json:"name" binding:"required,max=255"`
	SourcePlatform  string                  `json:"source_platform" binding:"required"`
	TargetPlatform  string                  `json:"target_platform" binding:"required"`
	EntityType      string                  `json:"entity_type" binding:"required"`
	FieldMaps       []FieldMapRequest       `json:"field_maps" binding:"required,min=1"`
	Transformations []TransformationRequest `json:"transformations,omitempty"`
}

// ToFieldMaps converts the request field maps to domain field maps
func (r *CreateMappingRequest) ToFieldMaps() []mapping.FieldMap {
	return toDomainFieldMaps(r.FieldMaps)
}

// ToTransformations converts the request transformations to domain specs
func (r *CreateMappingRequest) ToTransformations() []mapping.TransformationSpec {
	specs := make([]mapping.TransformationSpec, 0, len(r.Transformations))
	for _, t := range r.Transformations {
		specs = append(specs, mapping.TransformationSpec{
			SourcePath: t.SourcePath,
			Function:   t.Function,
			Args:       t.Args,
		})
	}
	return specs
}

func toDomainFieldMaps(reqs []FieldMapRequest) []mapping.FieldMap {
	maps := make([]mapping.FieldMap, 0, len(reqs))
	for _, fm := range reqs {
		maps = append(maps, mapping.FieldMap{
			SourcePath:   fm.SourcePath,
			TargetPath:   fm.TargetPath,
			Required:     fm.Required,
			DefaultValue: fm.DefaultValue,
			IsArray:      fm.IsArray,
			ItemMaps:     toDomainFieldMaps(fm.ItemMaps),
		})
	}
	return maps
}

// MappingResponse represents a field mapping
type MappingResponse struct {
	ID              uuid.UUID                    `json:"id"`
	Name            string                       `json:"name"`
	Route           string                       `json:"route"`
	EntityType      string                       `json:"entity_type"`
	FieldMaps       []mapping.FieldMap           `json:"field_maps"`
	Transformations []mapping.TransformationSpec `json:"transformations,omitempty"`
	IsActive        bool                         `json:"is_active"`
	Version         int                          `json:"version"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// NewMappingResponse converts a domain mapping to its response form
func NewMappingResponse(m *mapping.FieldMapping) MappingResponse {
	return MappingResponse{
		ID:              m.ID,
		Name:            m.Name,
		Route:           m.Route.String(),
		EntityType:      m.EntityType.String(),
		FieldMaps:       m.FieldMaps,
		Transformations: m.Transformations,
		IsActive:        m.IsActive,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Sync runs
// ---------------------------------------------------------------------------

// TriggerRunRequest starts a sync run
type TriggerRunRequest struct {
	SourcePlatform string `json:"source_platform" binding:"required"`
	TargetPlatform string `json:"target_platform" binding:"required"`
	EntityType     string `json:"entity_type" binding:"required"`
	// Mode is FULL or INCREMENTAL; defaults to INCREMENTAL
	Mode      string     `json:"mode,omitempty" binding:"omitempty,oneof=FULL INCREMENTAL"`
	EntityIDs []string   `json:"entity_ids,omitempty"`
	DryRun    bool       `json:"dry_run"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
}

// RunResponse represents a sync run
type RunResponse struct {
	ID           uuid.UUID        `json:"id"`
	Route        string           `json:"route"`
	EntityType   string           `json:"entity_type"`
	Mode         string           `json:"mode"`
	DryRun       bool             `json:"dry_run"`
	Status       string           `json:"status"`
	Counts       sync.RunCounts   `json:"counts"`
	Errors       []sync.EntityError `json:"errors,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewRunResponse converts a domain run to its response form
func NewRunResponse(r *sync.SyncRun) RunResponse {
	return RunResponse{
		ID:           r.ID,
		Route:        r.Route.String(),
		EntityType:   r.EntityType.String(),
		Mode:         string(r.Mode),
		DryRun:       r.DryRun,
		Status:       string(r.Status),
		Counts:       r.Counts,
		Errors:       r.Errors,
		ErrorMessage: r.ErrorMessage,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		CreatedAt:    r.CreatedAt,
	}
}

// RunListRequest filters run history
type RunListRequest struct {
	ListRequest
	Route      string `form:"route"`
	EntityType string `form:"entity_type"`
	Status     string `form:"status"`
}

// DryRunResponse carries a dry run's report
type DryRunResponse struct {
	Run     RunResponse            `json:"run"`
	Summary appsync.Summary        `json:"summary"`
	Changes []appsync.ChangePreview `json:"changes"`
}

// ---------------------------------------------------------------------------
// Conflicts
// ---------------------------------------------------------------------------

// ConflictResponse represents a sync conflict
type ConflictResponse struct {
	ID            uuid.UUID  `json:"id"`
	EntityType    string     `json:"entity_type"`
	SourceID      string     `json:"source_id"`
	LocalVersion  string     `json:"local_version"`
	RemoteVersion string     `json:"remote_version"`
	DetectedAt    time.Time  `json:"detected_at"`
	Resolution    string     `json:"resolution"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// NewConflictResponse converts a domain conflict to its response form
func NewConflictResponse(c *sync.SyncConflict) ConflictResponse {
	return ConflictResponse{
		ID:            c.ID,
		EntityType:    c.EntityType.String(),
		SourceID:      c.SourceID,
		LocalVersion:  c.LocalVersion,
		RemoteVersion: c.RemoteVersion,
		DetectedAt:    c.DetectedAt,
		Resolution:    string(c.Resolution),
		ResolvedAt:    c.ResolvedAt,
	}
}

// ResolveConflictRequest settles a pending conflict
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=SOURCE_WINS TARGET_WINS NEWEST_WINS MANUAL"`
}

// ---------------------------------------------------------------------------
// Sync configuration
// ---------------------------------------------------------------------------

// SyncConfigResponse represents per-entity sync behavior
type SyncConfigResponse struct {
	EntityType       string    `json:"entity_type"`
	Direction        string    `json:"direction"`
	SourceOfTruth    string    `json:"source_of_truth"`
	ConflictStrategy string    `json:"conflict_strategy"`
	ClockAuthority   string    `json:"clock_authority"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewSyncConfigResponse converts a domain config to its response form
func NewSyncConfigResponse(c *sync.EntitySyncConfig) SyncConfigResponse {
	return SyncConfigResponse{
		EntityType:       c.EntityType.String(),
		Direction:        string(c.Direction),
		SourceOfTruth:    string(c.SourceOfTruth),
		ConflictStrategy: string(c.ConflictStrategy),
		ClockAuthority:   string(c.ClockAuthority),
		UpdatedAt:        c.UpdatedAt,
	}
}

// UpdateSyncConfigRequest updates per-entity sync behavior. The change
// applies from the next run.
type UpdateSyncConfigRequest struct {
	Direction        string `json:"direction" binding:"required,oneof=ONE_WAY TWO_WAY"`
	SourceOfTruth    string `json:"source_of_truth" binding:"required,oneof=INTERNAL EXTERNAL"`
	ConflictStrategy string `json:"conflict_strategy" binding:"required,oneof=SOURCE_WINS TARGET_WINS NEWEST_WINS MANUAL"`
	ClockAuthority   string `json:"clock_authority" binding:"omitempty,oneof=INTERNAL EXTERNAL"`
}

// ---------------------------------------------------------------------------
// Bulk safety gate
// ---------------------------------------------------------------------------

// BulkAssessRequest proposes a bulk operation for assessment
type BulkAssessRequest struct {
	Operation   string `json:"operation" binding:"required,max=255"`
	RecordCount int    `json:"record_count" binding:"required,min=1"`
	Destructive bool   `json:"destructive"`
}

// BulkConfirmRequest confirms a previously assessed operation
type BulkConfirmRequest struct {
	Token     string `json:"token" binding:"required"`
	Operation string `json:"operation" binding:"required,max=255"`
}

// AuditEntryResponse represents one confirmed bulk operation
type AuditEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Operation   string    `json:"operation"`
	RecordCount int       `json:"record_count"`
	Destructive bool      `json:"destructive"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewAuditEntryResponse converts a domain audit entry to its response form
func NewAuditEntryResponse(e *bulk.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          e.ID,
		Operation:   e.Operation,
		RecordCount: e.RecordCount,
		Destructive: e.Destructive,
		OccurredAt:  e.OccurredAt,
	}
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// WebhookEventRequest is an external platform's change notification
type WebhookEventRequest struct {
	EventID    string `json:"event_id" binding:"required,max=255"`
	Platform   string `json:"platform" binding:"required"`
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   string `json:"entity_id" binding:"required,max=255"`
}
