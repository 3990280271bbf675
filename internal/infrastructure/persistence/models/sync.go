package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/retailops/backend/internal/domain/bulk"
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// FieldMappingModel
// ---------------------------------------------------------------------------

// FieldMappingModel is the persistence model for the FieldMapping aggregate.
type FieldMappingModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_field_mapping_tenant,priority:1"`
	Name                string          `gorm:"type:varchar(255);not null"`
	SourcePlatform      sync.Platform   `gorm:"type:varchar(20);not null;index:idx_field_mapping_route,priority:2"`
	TargetPlatform      sync.Platform   `gorm:"type:varchar(20);not null;index:idx_field_mapping_route,priority:3"`
	EntityType          sync.EntityType `gorm:"type:varchar(20);not null;index:idx_field_mapping_route,priority:4"`
	FieldMapsJSON       string          `gorm:"type:jsonb;column:field_maps;not null"`
	TransformationsJSON string          `gorm:"type:jsonb;column:transformations"`
	IsActive            bool            `gorm:"not null;default:false;index:idx_field_mapping_route,priority:1"`
	Version             int             `gorm:"not null;default:1"`
	CreatedAt           time.Time       `gorm:"not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FieldMappingModel) TableName() string {
	return "field_mappings"
}

// ToDomain converts the persistence model to a domain FieldMapping
func (m *FieldMappingModel) ToDomain() *mapping.FieldMapping {
	fm := &mapping.FieldMapping{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Name:       m.Name,
		Route:      sync.Route{Source: m.SourcePlatform, Target: m.TargetPlatform},
		EntityType: m.EntityType,
		IsActive:   m.IsActive,
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.FieldMapsJSON != "" {
		var maps []mapping.FieldMap
		if err := json.Unmarshal([]byte(m.FieldMapsJSON), &maps); err == nil {
			fm.FieldMaps = maps
		}
	}
	if m.TransformationsJSON != "" {
		var specs []mapping.TransformationSpec
		if err := json.Unmarshal([]byte(m.TransformationsJSON), &specs); err == nil {
			fm.Transformations = specs
		}
	}
	return fm
}

// FromDomain populates the persistence model from a domain FieldMapping
func (m *FieldMappingModel) FromDomain(fm *mapping.FieldMapping) {
	m.ID = fm.ID
	m.TenantID = fm.TenantID
	m.Name = fm.Name
	m.SourcePlatform = fm.Route.Source
	m.TargetPlatform = fm.Route.Target
	m.EntityType = fm.EntityType
	m.IsActive = fm.IsActive
	m.Version = fm.Version
	m.CreatedAt = fm.CreatedAt
	m.UpdatedAt = fm.UpdatedAt

	if data, err := json.Marshal(fm.FieldMaps); err == nil {
		m.FieldMapsJSON = string(data)
	} else {
		m.FieldMapsJSON = "[]"
	}
	if len(fm.Transformations) > 0 {
		if data, err := json.Marshal(fm.Transformations); err == nil {
			m.TransformationsJSON = string(data)
		}
	} else {
		m.TransformationsJSON = "[]"
	}
}

// FieldMappingModelFromDomain creates a persistence model from a domain FieldMapping
func FieldMappingModelFromDomain(fm *mapping.FieldMapping) *FieldMappingModel {
	m := &FieldMappingModel{}
	m.FromDomain(fm)
	return m
}

// ---------------------------------------------------------------------------
// CrossSystemReferenceModel
// ---------------------------------------------------------------------------

// CrossSystemReferenceModel is the persistence model for CrossSystemReference.
type CrossSystemReferenceModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uniq_reference_identity,priority:1"`
	EntityType     sync.EntityType `gorm:"type:varchar(20);not null;uniqueIndex:uniq_reference_identity,priority:2"`
	SourcePlatform sync.Platform   `gorm:"type:varchar(20);not null;uniqueIndex:uniq_reference_identity,priority:3"`
	SourceID       string          `gorm:"type:varchar(100);not null;uniqueIndex:uniq_reference_identity,priority:4"`
	TargetPlatform sync.Platform   `gorm:"type:varchar(20);not null;uniqueIndex:uniq_reference_identity,priority:5"`
	TargetID       string          `gorm:"type:varchar(100);not null;index:idx_reference_target"`
	ContentHash    string          `gorm:"type:varchar(64)"`
	LastSyncedAt   time.Time       `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CrossSystemReferenceModel) TableName() string {
	return "cross_system_references"
}

// ToDomain converts the persistence model to a domain CrossSystemReference
func (m *CrossSystemReferenceModel) ToDomain() *sync.CrossSystemReference {
	return &sync.CrossSystemReference{
		ID:             m.ID,
		TenantID:       m.TenantID,
		EntityType:     m.EntityType,
		SourcePlatform: m.SourcePlatform,
		SourceID:       m.SourceID,
		TargetPlatform: m.TargetPlatform,
		TargetID:       m.TargetID,
		ContentHash:    m.ContentHash,
		LastSyncedAt:   m.LastSyncedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CrossSystemReference
func (m *CrossSystemReferenceModel) FromDomain(ref *sync.CrossSystemReference) {
	m.ID = ref.ID
	m.TenantID = ref.TenantID
	m.EntityType = ref.EntityType
	m.SourcePlatform = ref.SourcePlatform
	m.SourceID = ref.SourceID
	m.TargetPlatform = ref.TargetPlatform
	m.TargetID = ref.TargetID
	m.ContentHash = ref.ContentHash
	m.LastSyncedAt = ref.LastSyncedAt
	m.CreatedAt = ref.CreatedAt
	m.UpdatedAt = ref.UpdatedAt
}

// ---------------------------------------------------------------------------
// SyncRunModel
// ---------------------------------------------------------------------------

// SyncRunModel is the persistence model for SyncRun.
type SyncRunModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_sync_run_tenant,priority:1"`
	SourcePlatform sync.Platform   `gorm:"type:varchar(20);not null;index:idx_sync_run_route,priority:2"`
	TargetPlatform sync.Platform   `gorm:"type:varchar(20);not null;index:idx_sync_run_route,priority:3"`
	EntityType     sync.EntityType `gorm:"type:varchar(20);not null;index:idx_sync_run_route,priority:4"`
	Mode           sync.SyncMode   `gorm:"type:varchar(20);not null"`
	DryRun         bool            `gorm:"not null;default:false"`
	FiltersJSON    string          `gorm:"type:jsonb;column:filters"`
	Status         sync.RunStatus  `gorm:"type:varchar(20);not null;index:idx_sync_run_route,priority:1"`
	CountsJSON     string          `gorm:"type:jsonb;column:counts"`
	ErrorsJSON     string          `gorm:"type:jsonb;column:entity_errors"`
	ErrorMessage   string          `gorm:"type:text"`
	StartedAt      *time.Time
	FinishedAt     *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"not null;index"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun
func (m *SyncRunModel) ToDomain() *sync.SyncRun {
	run := &sync.SyncRun{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Route:        sync.Route{Source: m.SourcePlatform, Target: m.TargetPlatform},
		EntityType:   m.EntityType,
		Mode:         m.Mode,
		DryRun:       m.DryRun,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.FiltersJSON != "" {
		_ = json.Unmarshal([]byte(m.FiltersJSON), &run.Filters)
	}
	if m.CountsJSON != "" {
		_ = json.Unmarshal([]byte(m.CountsJSON), &run.Counts)
	}
	if m.ErrorsJSON != "" {
		_ = json.Unmarshal([]byte(m.ErrorsJSON), &run.Errors)
	}
	return run
}

// FromDomain populates the persistence model from a domain SyncRun
func (m *SyncRunModel) FromDomain(run *sync.SyncRun) {
	m.ID = run.ID
	m.TenantID = run.TenantID
	m.SourcePlatform = run.Route.Source
	m.TargetPlatform = run.Route.Target
	m.EntityType = run.EntityType
	m.Mode = run.Mode
	m.DryRun = run.DryRun
	m.Status = run.Status
	m.ErrorMessage = run.ErrorMessage
	m.StartedAt = run.StartedAt
	m.FinishedAt = run.FinishedAt
	m.CreatedAt = run.CreatedAt
	m.UpdatedAt = run.UpdatedAt

	if data, err := json.Marshal(run.Filters); err == nil {
		m.FiltersJSON = string(data)
	}
	if data, err := json.Marshal(run.Counts); err == nil {
		m.CountsJSON = string(data)
	}
	if len(run.Errors) > 0 {
		if data, err := json.Marshal(run.Errors); err == nil {
			m.ErrorsJSON = string(data)
		}
	} else {
		m.ErrorsJSON = "[]"
	}
}

// ---------------------------------------------------------------------------
// EntitySyncConfigModel
// ---------------------------------------------------------------------------

// EntitySyncConfigModel is the persistence model for EntitySyncConfig.
type EntitySyncConfigModel struct {
	ID               uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uniq_sync_config,priority:1"`
	EntityType       sync.EntityType       `gorm:"type:varchar(20);not null;uniqueIndex:uniq_sync_config,priority:2"`
	Direction        sync.Direction        `gorm:"type:varchar(20);not null"`
	SourceOfTruth    sync.SourceOfTruth    `gorm:"type:varchar(20);not null"`
	ConflictStrategy sync.ConflictStrategy `gorm:"type:varchar(20);not null"`
	ClockAuthority   sync.ClockAuthority   `gorm:"type:varchar(20);not null;default:'INTERNAL'"`
	CreatedAt        time.Time             `gorm:"not null"`
	UpdatedAt        time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntitySyncConfigModel) TableName() string {
	return "entity_sync_configs"
}

// ToDomain converts the persistence model to a domain EntitySyncConfig
func (m *EntitySyncConfigModel) ToDomain() *sync.EntitySyncConfig {
	return &sync.EntitySyncConfig{
		ID:               m.ID,
		TenantID:         m.TenantID,
		EntityType:       m.EntityType,
		Direction:        m.Direction,
		SourceOfTruth:    m.SourceOfTruth,
		ConflictStrategy: m.ConflictStrategy,
		ClockAuthority:   m.ClockAuthority,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntitySyncConfig
func (m *EntitySyncConfigModel) FromDomain(cfg *sync.EntitySyncConfig) {
	m.ID = cfg.ID
	m.TenantID = cfg.TenantID
	m.EntityType = cfg.EntityType
	m.Direction = cfg.Direction
	m.SourceOfTruth = cfg.SourceOfTruth
	m.ConflictStrategy = cfg.ConflictStrategy
	m.ClockAuthority = cfg.ClockAuthority
	m.CreatedAt = cfg.CreatedAt
	m.UpdatedAt = cfg.UpdatedAt
}

// ---------------------------------------------------------------------------
// SyncConflictModel
// ---------------------------------------------------------------------------

// SyncConflictModel is the persistence model for SyncConflict.
type SyncConflictModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID               `gorm:"type:uuid;not null;index:idx_conflict_entity,priority:1"`
	EntityType    sync.EntityType         `gorm:"type:varchar(20);not null;index:idx_conflict_entity,priority:2"`
	SourceID      string                  `gorm:"type:varchar(100);not null;index:idx_conflict_entity,priority:3"`
	LocalVersion  string                  `gorm:"type:varchar(64)"`
	RemoteVersion string                  `gorm:"type:varchar(64)"`
	DetectedAt    time.Time               `gorm:"not null"`
	Resolution    sync.ConflictResolution `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ResolvedAt    *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncConflictModel) TableName() string {
	return "sync_conflicts"
}

// ToDomain converts the persistence model to a domain SyncConflict
func (m *SyncConflictModel) ToDomain() *sync.SyncConflict {
	return &sync.SyncConflict{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EntityType:    m.EntityType,
		SourceID:      m.SourceID,
		LocalVersion:  m.LocalVersion,
		RemoteVersion: m.RemoteVersion,
		DetectedAt:    m.DetectedAt,
		Resolution:    m.Resolution,
		ResolvedAt:    m.ResolvedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncConflict
func (m *SyncConflictModel) FromDomain(c *sync.SyncConflict) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.EntityType = c.EntityType
	m.SourceID = c.SourceID
	m.LocalVersion = c.LocalVersion
	m.RemoteVersion = c.RemoteVersion
	m.DetectedAt = c.DetectedAt
	m.Resolution = c.Resolution
	m.ResolvedAt = c.ResolvedAt
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// ---------------------------------------------------------------------------
// ConfirmationTokenModel
// ---------------------------------------------------------------------------

// ConfirmationTokenModel is the persistence model for ConfirmationToken.
type ConfirmationTokenModel struct {
	Token       string    `gorm:"type:varchar(64);primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Description string    `gorm:"type:varchar(255);not null"`
	RecordCount int       `gorm:"not null"`
	Destructive bool      `gorm:"not null;default:false"`
	IssuedAt    time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	Consumed    bool      `gorm:"not null;default:false"`
	ConsumedAt  *time.Time
}

// TableName returns the table name for GORM
func (ConfirmationTokenModel) TableName() string {
	return "confirmation_tokens"
}

// ToDomain converts the persistence model to a domain ConfirmationToken
func (m *ConfirmationTokenModel) ToDomain() *bulk.ConfirmationToken {
	return &bulk.ConfirmationToken{
		Token:       m.Token,
		TenantID:    m.TenantID,
		Description: m.Description,
		RecordCount: m.RecordCount,
		Destructive: m.Destructive,
		IssuedAt:    m.IssuedAt,
		ExpiresAt:   m.ExpiresAt,
		Consumed:    m.Consumed,
		ConsumedAt:  m.ConsumedAt,
	}
}

// FromDomain populates the persistence model from a domain ConfirmationToken
func (m *ConfirmationTokenModel) FromDomain(t *bulk.ConfirmationToken) {
	m.Token = t.Token
	m.TenantID = t.TenantID
	m.Description = t.Description
	m.RecordCount = t.RecordCount
	m.Destructive = t.Destructive
	m.IssuedAt = t.IssuedAt
	m.ExpiresAt = t.ExpiresAt
	m.Consumed = t.Consumed
	m.ConsumedAt = t.ConsumedAt
}

// ---------------------------------------------------------------------------
// AuditLogModel
// ---------------------------------------------------------------------------

// AuditLogModel is the persistence model for the append-only bulk audit log.
type AuditLogModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_tenant,priority:1"`
	Operation   string    `gorm:"type:varchar(255);not null"`
	RecordCount int       `gorm:"not null"`
	Destructive bool      `gorm:"not null;default:false"`
	Token       string    `gorm:"type:varchar(64)"`
	OccurredAt  time.Time `gorm:"not null;index:idx_audit_tenant,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "bulk_audit_log"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditLogModel) ToDomain() *bulk.AuditEntry {
	return &bulk.AuditEntry{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Operation:   m.Operation,
		RecordCount: m.RecordCount,
		Destructive: m.Destructive,
		Token:       m.Token,
		OccurredAt:  m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain AuditEntry
func (m *AuditLogModel) FromDomain(e *bulk.AuditEntry) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.Operation = e.Operation
	m.RecordCount = e.RecordCount
	m.Destructive = e.Destructive
	m.Token = e.Token
	m.OccurredAt = e.OccurredAt
}
