package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReferenceNotFound      = errors.New("sync: cross-system reference not found")
	ErrReferenceAlreadyExists = errors.New("sync: cross-system reference already exists")
)

// CrossSystemReference records that a source entity has a counterpart on a
// target platform. It is created on the first successful write to the target
// and updated on every subsequent write; it is never deleted except by an
// explicit tenant data purge.
type CrossSystemReference struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	EntityType     EntityType
	SourcePlatform Platform
	SourceID       string
	TargetPlatform Platform
	TargetID       string
	// ContentHash is a stable digest of the last transformed payload written
	// to the target. Equal hashes identify no-op syncs and suppress re-sync
	// loops in two-way setups.
	ContentHash  string
	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCrossSystemReference creates a reference for a freshly written entity
func NewCrossSystemReference(
	tenantID uuid.UUID,
	entityType EntityType,
	sourcePlatform Platform,
	sourceID string,
	targetPlatform Platform,
	targetID string,
	contentHash string,
) (*CrossSystemReference, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if sourceID == "" || targetID == "" {
		return nil, errors.New("sync: source and target ids are required")
	}
	now := time.Now()
	return &CrossSystemReference{
		ID:             uuid.New(),
		TenantID:       tenantID,
		EntityType:     entityType,
		SourcePlatform: sourcePlatform,
		SourceID:       sourceID,
		TargetPlatform: targetPlatform,
		TargetID:       targetID,
		ContentHash:    contentHash,
		LastSyncedAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RecordSync updates the reference after a successful write to the target
func (r *CrossSystemReference) RecordSync(contentHash string) {
	now := time.Now()
	r.ContentHash = contentHash
	r.LastSyncedAt = now
	r.UpdatedAt = now
}

// ContentHashOf computes the stable digest of a transformed payload.
// encoding/json marshals map keys in sorted order, which makes the digest
// independent of field insertion order.
func ContentHashOf(payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ---------------------------------------------------------------------------
// ReferenceRepository
// ---------------------------------------------------------------------------

// ReferenceRepository persists cross-system references. Find/Save pairs that
// back idempotent writes must execute as a single atomic unit; Upsert exists
// for that purpose and is implemented transactionally.
type ReferenceRepository interface {
	// Find returns the reference for (tenant, entityType, source, sourceID, target),
	// or ErrReferenceNotFound
	Find(ctx context.Context, tenantID uuid.UUID, entityType EntityType, source Platform, sourceID string, target Platform) (*CrossSystemReference, error)

	// FindByTargetID performs the reverse lookup by target id
	FindByTargetID(ctx context.Context, tenantID uuid.UUID, entityType EntityType, target Platform, targetID string) (*CrossSystemReference, error)

	// Upsert atomically creates the reference if absent or refreshes
	// target_id, content_hash and last_synced_at if present. The
	// read-check-write executes inside one transaction to prevent
	// duplicate-create races between concurrent workers.
	Upsert(ctx context.Context, ref *CrossSystemReference) error

	// DeleteForTenant removes all references for a tenant (explicit data purge)
	DeleteForTenant(ctx context.Context, tenantID uuid.UUID) error
}
