package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTenantID      = errors.New("sync: invalid tenant ID")
	ErrRunNotFound          = errors.New("sync: run not found")
	ErrRunAlreadyRunning    = errors.New("sync: a run is already in progress for this tenant and route")
	ErrRunInvalidTransition = errors.New("sync: invalid run status transition")
	ErrRunNotRetryable      = errors.New("sync: run has no failed entities to retry")
)

// ---------------------------------------------------------------------------
// SyncMode / RunStatus
// ---------------------------------------------------------------------------

// SyncMode selects how the orchestrator chooses the entity set to process.
type SyncMode string

const (
	// SyncModeFull processes all active entities in scope
	SyncModeFull SyncMode = "FULL"
	// SyncModeIncremental processes entities modified after the route's
	// last successful run completion
	SyncModeIncremental SyncMode = "INCREMENTAL"
)

// IsValid returns true if the mode is known
func (m SyncMode) IsValid() bool {
	return m == SyncModeFull || m == SyncModeIncremental
}

// RunStatus represents the lifecycle state of a SyncRun. Transitions are
// monotonic: PENDING -> RUNNING -> {COMPLETED|FAILED|CANCELLED}.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsValid returns true if the status is known
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for final states
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// RunCounts / EntityError
// ---------------------------------------------------------------------------

// RunCounts aggregates per-entity outcomes of one run.
type RunCounts struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// EntityErrorKind classifies a per-entity failure for operator display.
type EntityErrorKind string

const (
	EntityErrorTransformation EntityErrorKind = "TRANSFORMATION"
	EntityErrorDependency     EntityErrorKind = "DEPENDENCY_UNRESOLVABLE"
	EntityErrorTransient      EntityErrorKind = "TRANSIENT_PLATFORM"
	EntityErrorConflict       EntityErrorKind = "CONFLICT_PENDING"
	EntityErrorAuth           EntityErrorKind = "AUTH"
	EntityErrorUnknown        EntityErrorKind = "UNKNOWN"
)

// EntityError records one failed (or decision-pending) entity with enough
// context to retry just the failed subset.
type EntityError struct {
	EntityID   string          `json:"entity_id"`
	EntityType EntityType      `json:"entity_type"`
	Kind       EntityErrorKind `json:"kind"`
	Message    string          `json:"message"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ---------------------------------------------------------------------------
// SyncRun
// ---------------------------------------------------------------------------

// RunFilters narrows the entity selection of a run.
type RunFilters struct {
	EntityIDs   []string   `json:"entity_ids,omitempty"`
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`
}

// SyncRun is one orchestrator invocation for a (tenant, route, entity type).
type SyncRun struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Route      Route
	EntityType EntityType
	Mode       SyncMode
	DryRun     bool
	Filters    RunFilters
	Status     RunStatus
	Counts     RunCounts
	Errors     []EntityError
	// ErrorMessage carries the run-scoped failure (validation, auth, lock)
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSyncRun creates a pending run
func NewSyncRun(tenantID uuid.UUID, route Route, entityType EntityType, mode SyncMode, filters RunFilters, dryRun bool) (*SyncRun, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if !mode.IsValid() {
		return nil, errors.New("sync: invalid sync mode")
	}
	now := time.Now()
	return &SyncRun{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Route:      route,
		EntityType: entityType,
		Mode:       mode,
		DryRun:     dryRun,
		Filters:    filters,
		Status:     RunStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start transitions the run to RUNNING
func (r *SyncRun) Start() error {
	if r.Status != RunStatusPending {
		return ErrRunInvalidTransition
	}
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.UpdatedAt = now
	return nil
}

// RecordSuccess accumulates a successful entity outcome
func (r *SyncRun) RecordSuccess(created bool) {
	r.Counts.Fetched++
	if created {
		r.Counts.Created++
	} else {
		r.Counts.Updated++
	}
	r.UpdatedAt = time.Now()
}

// RecordSkip accumulates a skipped entity (already in sync)
func (r *SyncRun) RecordSkip() {
	r.Counts.Fetched++
	r.Counts.Skipped++
	r.UpdatedAt = time.Now()
}

// RecordFailure accumulates a per-entity failure without aborting the run
func (r *SyncRun) RecordFailure(entityID string, entityType EntityType, kind EntityErrorKind, message string) {
	r.Counts.Fetched++
	r.Counts.Failed++
	r.Errors = append(r.Errors, EntityError{
		EntityID:   entityID,
		EntityType: entityType,
		Kind:       kind,
		Message:    message,
		OccurredAt: time.Now(),
	})
	r.UpdatedAt = time.Now()
}

// Complete finalizes the run. The run fails only when it ends with zero
// successful writes and at least one failure; otherwise it completes with an
// itemized failed count.
func (r *SyncRun) Complete() error {
	if r.Status != RunStatusRunning {
		return ErrRunInvalidTransition
	}
	now := time.Now()
	if r.Counts.Failed > 0 && r.Counts.Created == 0 && r.Counts.Updated == 0 && r.Counts.Skipped == 0 {
		r.Status = RunStatusFailed
	} else {
		r.Status = RunStatusCompleted
	}
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fail finalizes the run with a run-scoped failure before or during processing
func (r *SyncRun) Fail(message string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.ErrorMessage = message
	r.FinishedAt = &now
	r.UpdatedAt = now
}

// Cancel marks the run cancelled. Entity work already dispatched completes;
// no further entities are dispatched once cancellation is observed.
func (r *SyncRun) Cancel() error {
	if r.Status.IsTerminal() {
		return ErrRunInvalidTransition
	}
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// FailedEntityIDs returns the ids of entities that failed in this run
func (r *SyncRun) FailedEntityIDs() []string {
	ids := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Kind != EntityErrorConflict {
			ids = append(ids, e.EntityID)
		}
	}
	return ids
}

// ---------------------------------------------------------------------------
// SyncRunRepository
// ---------------------------------------------------------------------------

// RunListFilter narrows run history queries.
type RunListFilter struct {
	Route      *Route
	EntityType *EntityType
	Status     *RunStatus
	Page       int
	PageSize   int
}

// SyncRunRepository persists sync runs.
type SyncRunRepository interface {
	// Save creates or updates a run
	Save(ctx context.Context, run *SyncRun) error

	// FindByID returns a run scoped to a tenant, or ErrRunNotFound
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SyncRun, error)

	// FindLastSuccessful returns the most recent COMPLETED non-dry run for
	// (tenant, route, entityType), or ErrRunNotFound. Incremental mode uses
	// its completion time as the modified-after watermark.
	FindLastSuccessful(ctx context.Context, tenantID uuid.UUID, route Route, entityType EntityType) (*SyncRun, error)

	// List returns run history for a tenant
	List(ctx context.Context, tenantID uuid.UUID, filter RunListFilter) ([]SyncRun, int64, error)
}

// ---------------------------------------------------------------------------
// RunLockManager
// ---------------------------------------------------------------------------

// RunLockManager serializes runs per (tenant, route). TryAcquire never
// blocks: when the lock is held the orchestrator reports ErrRunAlreadyRunning
// instead of queueing silently.
type RunLockManager interface {
	// TryAcquire acquires the advisory lock for (tenant, route).
	// Returns false without error when the lock is already held.
	TryAcquire(ctx context.Context, tenantID uuid.UUID, route Route) (bool, error)

	// Release releases the advisory lock. Safe to call on a lock that was
	// never acquired.
	Release(ctx context.Context, tenantID uuid.UUID, route Route) error
}
