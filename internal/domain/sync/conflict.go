package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConflictNotFound        = errors.New("sync: conflict not found")
	ErrConflictAlreadyResolved = errors.New("sync: conflict already resolved")
)

// ConflictResolution records how (or whether) a conflict was settled.
type ConflictResolution string

const (
	ConflictResolutionPending    ConflictResolution = "PENDING"
	ConflictResolutionSourceWins ConflictResolution = "SOURCE_WINS"
	ConflictResolutionTargetWins ConflictResolution = "TARGET_WINS"
	ConflictResolutionNewestWins ConflictResolution = "NEWEST_WINS"
	ConflictResolutionManual     ConflictResolution = "MANUAL"
)

// IsValid returns true if the resolution is known
func (r ConflictResolution) IsValid() bool {
	switch r {
	case ConflictResolutionPending, ConflictResolutionSourceWins, ConflictResolutionTargetWins,
		ConflictResolutionNewestWins, ConflictResolutionManual:
		return true
	default:
		return false
	}
}

// SyncConflict is raised when both sides of a two-way entity changed since
// the last recorded synced hash. A pending conflict blocks further automatic
// sync of that entity only; the rest of the run proceeds. Terminal once
// resolved.
type SyncConflict struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EntityType    EntityType
	SourceID      string
	LocalVersion  string
	RemoteVersion string
	DetectedAt    time.Time
	Resolution    ConflictResolution
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSyncConflict creates a pending conflict
func NewSyncConflict(tenantID uuid.UUID, entityType EntityType, sourceID, localVersion, remoteVersion string) (*SyncConflict, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if sourceID == "" {
		return nil, errors.New("sync: conflict source id is required")
	}
	now := time.Now()
	return &SyncConflict{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EntityType:    entityType,
		SourceID:      sourceID,
		LocalVersion:  localVersion,
		RemoteVersion: remoteVersion,
		DetectedAt:    now,
		Resolution:    ConflictResolutionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsPending returns true while the conflict awaits a decision
func (c *SyncConflict) IsPending() bool {
	return c.Resolution == ConflictResolutionPending
}

// Resolve settles the conflict. A conflict resolves exactly once.
func (c *SyncConflict) Resolve(resolution ConflictResolution) error {
	if !c.IsPending() {
		return ErrConflictAlreadyResolved
	}
	if !resolution.IsValid() || resolution == ConflictResolutionPending {
		return errors.New("sync: invalid conflict resolution")
	}
	now := time.Now()
	c.Resolution = resolution
	c.ResolvedAt = &now
	c.UpdatedAt = now
	return nil
}

// SyncConflictRepository persists conflicts.
type SyncConflictRepository interface {
	// Save creates or updates a conflict
	Save(ctx context.Context, conflict *SyncConflict) error

	// FindByID returns a conflict scoped to a tenant, or ErrConflictNotFound
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SyncConflict, error)

	// FindPending returns the pending conflict for an entity, or ErrConflictNotFound
	FindPending(ctx context.Context, tenantID uuid.UUID, entityType EntityType, sourceID string) (*SyncConflict, error)

	// ListPending returns all pending conflicts for a tenant
	ListPending(ctx context.Context, tenantID uuid.UUID) ([]SyncConflict, error)
}
