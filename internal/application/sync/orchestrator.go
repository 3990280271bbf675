package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// Options tunes the orchestrator's worker pool and retry behavior.
type Options struct {
	// Workers is the number of concurrent entity workers per run
	Workers int
	// MaxRetries caps retry attempts for transient platform failures
	MaxRetries int
	// RetryBaseDelay is the initial backoff delay, doubled per attempt
	RetryBaseDelay time.Duration
	// PageSize is passed to platform clients as a fetch hint
	PageSize int
}

// DefaultOptions returns the orchestrator defaults
func DefaultOptions() Options {
	return Options{
		Workers:        4,
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
		PageSize:       100,
	}
}

// RunRequest describes one requested sync run.
type RunRequest struct {
	TenantID   uuid.UUID
	Route      sync.Route
	EntityType sync.EntityType
	Mode       sync.SyncMode
	Filters    sync.RunFilters
	DryRun     bool
}

// RunResult is the outcome of a run, with previews populated for dry runs.
type RunResult struct {
	Run      *sync.SyncRun
	Previews []ChangePreview
}

// Orchestrator executes sync runs: it acquires the per-(tenant, route)
// advisory lock, re-validates the active mapping before any network call,
// selects the entity set for the run mode, and fans entities out to a
// bounded worker pool. One failing entity never aborts the run; transient
// platform failures are retried with exponential backoff and credential
// failures abort the remainder.
type Orchestrator struct {
	runs      sync.SyncRunRepository
	configs   sync.EntitySyncConfigRepository
	mappings  mapping.Repository
	validator *mapping.Validator
	clients   sync.PlatformClientRegistry
	flow      *FlowAdapter
	locks     sync.RunLockManager
	opts      Options
	logger    *zap.Logger

	mu      gosync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(
	runs sync.SyncRunRepository,
	configs sync.EntitySyncConfigRepository,
	mappings mapping.Repository,
	validator *mapping.Validator,
	clients sync.PlatformClientRegistry,
	flow *FlowAdapter,
	locks sync.RunLockManager,
	opts Options,
	log *zap.Logger,
) *Orchestrator {
	if opts.Workers <= 0 {
		opts = DefaultOptions()
	}
	return &Orchestrator{
		runs:      runs,
		configs:   configs,
		mappings:  mappings,
		validator: validator,
		clients:   clients,
		flow:      flow,
		locks:     locks,
		opts:      opts,
		logger:    log,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Run executes a sync run to completion. When another run already holds the
// (tenant, route) lock it returns ErrRunAlreadyRunning immediately instead
// of queueing.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	run, err := sync.NewSyncRun(req.TenantID, req.Route, req.EntityType, req.Mode, req.Filters, req.DryRun)
	if err != nil {
		return nil, err
	}

	acquired, err := o.locks.TryAcquire(ctx, req.TenantID, req.Route)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, sync.ErrRunAlreadyRunning
	}
	defer func() {
		if rerr := o.locks.Release(ctx, req.TenantID, req.Route); rerr != nil {
			logger.L(ctx).Error("Failed to release run lock",
				zap.String("route", req.Route.String()),
				zap.Error(rerr),
			)
		}
	}()

	if err := o.runs.Save(ctx, run); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.registerCancel(run.ID, cancel)
	defer o.unregisterCancel(run.ID)

	result, err := o.execute(runCtx, run, req)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel requests cancellation of a running run. Entity work already
// dispatched completes; no further entities are dispatched.
func (o *Orchestrator) Cancel(ctx context.Context, tenantID, runID uuid.UUID) error {
	run, err := o.runs.FindByID(ctx, tenantID, runID)
	if err != nil {
		return err
	}
	if err := run.Cancel(); err != nil {
		return err
	}
	if err := o.runs.Save(ctx, run); err != nil {
		return err
	}
	o.mu.Lock()
	cancel, ok := o.cancels[runID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	logger.L(ctx).Info("Sync run cancelled",
		zap.String("run_id", runID.String()),
	)
	return nil
}

// RetryFailed starts a new run scoped to the failed entities of a previous
// run. Pending-conflict entities are excluded; they unblock through conflict
// resolution, not retry.
func (o *Orchestrator) RetryFailed(ctx context.Context, tenantID, runID uuid.UUID) (*RunResult, error) {
	prev, err := o.runs.FindByID(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	failed := prev.FailedEntityIDs()
	if len(failed) == 0 {
		return nil, sync.ErrRunNotRetryable
	}
	return o.Run(ctx, RunRequest{
		TenantID:   tenantID,
		Route:      prev.Route,
		EntityType: prev.EntityType,
		Mode:       sync.SyncModeFull,
		Filters:    sync.RunFilters{EntityIDs: failed},
		DryRun:     false,
	})
}

// GetRun returns a run by id
func (o *Orchestrator) GetRun(ctx context.Context, tenantID, runID uuid.UUID) (*sync.SyncRun, error) {
	return o.runs.FindByID(ctx, tenantID, runID)
}

// ListRuns returns run history for a tenant
func (o *Orchestrator) ListRuns(ctx context.Context, tenantID uuid.UUID, filter sync.RunListFilter) ([]sync.SyncRun, int64, error) {
	return o.runs.List(ctx, tenantID, filter)
}

// ---------------------------------------------------------------------------
// run execution
// ---------------------------------------------------------------------------

func (o *Orchestrator) execute(ctx context.Context, run *sync.SyncRun, req RunRequest) (*RunResult, error) {
	// The mapping is re-validated on every run: schemas drift and a mapping
	// valid at activation time may reference fields that no longer exist.
	// Validation failures fail the run before any network call.
	m, err := o.mappings.FindActive(ctx, req.TenantID, req.Route, req.EntityType)
	if err != nil {
		run.Fail(fmt.Sprintf("no active mapping for %s %s: %v", req.Route, req.EntityType, err))
		return o.finish(ctx, run, nil)
	}
	if verrs := o.validator.Validate(m); len(verrs) > 0 {
		run.Fail(fmt.Sprintf("active mapping %s failed validation: %s", m.ID, verrs[0].Message))
		return o.finish(ctx, run, nil)
	}

	cfg, err := o.configs.Find(ctx, req.TenantID, req.EntityType)
	if err != nil {
		if !errors.Is(err, sync.ErrSyncConfigNotFound) {
			run.Fail(err.Error())
			return o.finish(ctx, run, nil)
		}
		cfg = sync.DefaultEntitySyncConfig(req.TenantID, req.EntityType)
	}

	filters := sync.FetchFilters{
		IDs:         req.Filters.EntityIDs,
		CreatedFrom: req.Filters.CreatedFrom,
		CreatedTo:   req.Filters.CreatedTo,
	}
	if req.Mode == sync.SyncModeIncremental {
		last, err := o.runs.FindLastSuccessful(ctx, req.TenantID, req.Route, req.EntityType)
		switch {
		case err == nil && last.FinishedAt != nil:
			filters.ModifiedAfter = last.FinishedAt
		case err != nil && !errors.Is(err, sync.ErrRunNotFound):
			run.Fail(err.Error())
			return o.finish(ctx, run, nil)
		}
		// No previous successful run: incremental degrades to a full scan.
	}

	source, err := o.clients.GetClient(req.Route.Source)
	if err != nil {
		run.Fail(err.Error())
		return o.finish(ctx, run, nil)
	}

	if err := run.Start(); err != nil {
		return nil, err
	}
	if err := o.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Sync run started",
		zap.String("run_id", run.ID.String()),
		zap.String("route", req.Route.String()),
		zap.String("entity_type", req.EntityType.String()),
		zap.String("mode", string(req.Mode)),
		zap.Bool("dry_run", req.DryRun),
	)

	previews := o.process(ctx, run, req, cfg, source, filters)

	if run.Status == sync.RunStatusRunning {
		// An abort mid-run leaves ErrorMessage set. Such a run must finish
		// FAILED even when earlier entities succeeded: a truncated entity set
		// is not a successful watermark for the next incremental run.
		if run.ErrorMessage != "" {
			run.Fail(run.ErrorMessage)
		} else if err := run.Complete(); err != nil {
			return nil, err
		}
	}
	return o.finish(ctx, run, previews)
}

// process fetches pages from the source and fans entities out to workers
func (o *Orchestrator) process(ctx context.Context, run *sync.SyncRun, req RunRequest, cfg *sync.EntitySyncConfig, source sync.PlatformClient, filters sync.FetchFilters) []ChangePreview {
	jobs := make(chan sync.RawEntity)
	var wg gosync.WaitGroup
	var mu gosync.Mutex
	var previews []ChangePreview
	var aborted atomic.Bool

	for i := 0; i < o.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				o.processEntity(ctx, run, req, cfg, raw, &mu, &previews, &aborted)
			}
		}()
	}

	cursor := ""
	for {
		if ctx.Err() != nil || aborted.Load() {
			break
		}
		page, next, err := source.FetchPage(ctx, req.TenantID, req.EntityType, cursor, filters)
		if err != nil {
			o.handleFetchError(ctx, run, req, err, &mu, &aborted)
			break
		}
		for _, raw := range page {
			if ctx.Err() != nil || aborted.Load() {
				break
			}
			jobs <- raw
		}
		if next == "" {
			break
		}
		cursor = next
	}
	close(jobs)
	wg.Wait()

	o.reconcileStatus(ctx, run)
	return previews
}

// processEntity runs one entity through the flow adapter with retries
func (o *Orchestrator) processEntity(ctx context.Context, run *sync.SyncRun, req RunRequest, cfg *sync.EntitySyncConfig, raw sync.RawEntity, mu *gosync.Mutex, previews *[]ChangePreview, aborted *atomic.Bool) {
	var result EntityResult
	var err error
	delay := o.opts.RetryBaseDelay
	for attempt := 0; ; attempt++ {
		result, err = o.flow.SyncEntity(ctx, req.TenantID, req.Route, cfg, &raw, req.DryRun)
		if err == nil || !sync.IsTransient(err) || attempt >= o.opts.MaxRetries {
			break
		}
		logger.L(ctx).Warn("Transient platform failure, retrying entity",
			zap.String("entity_id", raw.ID),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			logger.RedactedError(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}

	mu.Lock()
	defer mu.Unlock()

	if err != nil {
		kind := classifyEntityError(err)
		// Platform errors echo payload fields; scrub them before the
		// message lands in run history.
		run.RecordFailure(raw.ID, raw.EntityType, kind, logger.RedactString(err.Error()))
		if kind == sync.EntityErrorAuth {
			// Credentials will not heal mid-run. Stop dispatching and
			// surface the failure at run scope.
			aborted.Store(true)
			run.ErrorMessage = logger.RedactString(err.Error())
		}
		return
	}

	switch result.Outcome {
	case OutcomeCreated:
		run.RecordSuccess(true)
	case OutcomeUpdated:
		run.RecordSuccess(false)
	case OutcomeSkipped:
		run.RecordSkip()
	case OutcomeConflict:
		run.RecordFailure(raw.ID, raw.EntityType, sync.EntityErrorConflict, "pending conflict blocks automatic sync")
	case OutcomePreviewed:
		run.Counts.Fetched++
		if result.Preview != nil {
			*previews = append(*previews, *result.Preview)
		}
	}
	run.Counts.Created += result.DependenciesCreated
}

func (o *Orchestrator) handleFetchError(ctx context.Context, run *sync.SyncRun, req RunRequest, err error, mu *gosync.Mutex, aborted *atomic.Bool) {
	mu.Lock()
	defer mu.Unlock()
	aborted.Store(true)
	run.ErrorMessage = logger.RedactString(fmt.Sprintf("fetch from %s failed: %v", req.Route.Source, err))
	logger.L(ctx).Error("Source fetch failed, aborting run",
		zap.String("run_id", run.ID.String()),
		logger.RedactedError(err),
	)
}

// reconcileStatus re-reads the persisted run to observe an external Cancel
func (o *Orchestrator) reconcileStatus(ctx context.Context, run *sync.SyncRun) {
	stored, err := o.runs.FindByID(ctx, run.TenantID, run.ID)
	if err != nil {
		return
	}
	if stored.Status == sync.RunStatusCancelled {
		run.Status = sync.RunStatusCancelled
		run.FinishedAt = stored.FinishedAt
	}
}

func (o *Orchestrator) finish(ctx context.Context, run *sync.SyncRun, previews []ChangePreview) (*RunResult, error) {
	if err := o.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Sync run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("fetched", run.Counts.Fetched),
		zap.Int("created", run.Counts.Created),
		zap.Int("updated", run.Counts.Updated),
		zap.Int("skipped", run.Counts.Skipped),
		zap.Int("failed", run.Counts.Failed),
	)
	return &RunResult{Run: run, Previews: previews}, nil
}

func (o *Orchestrator) registerCancel(runID uuid.UUID, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancels[runID] = cancel
}

func (o *Orchestrator) unregisterCancel(runID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancels, runID)
}

// classifyEntityError maps a pipeline error to its operator-facing kind
func classifyEntityError(err error) sync.EntityErrorKind {
	switch {
	case sync.IsAuthError(err):
		return sync.EntityErrorAuth
	case sync.IsDependencyError(err):
		return sync.EntityErrorDependency
	case sync.IsTransient(err):
		return sync.EntityErrorTransient
	case mapping.IsMappingError(err):
		return sync.EntityErrorTransformation
	default:
		return sync.EntityErrorUnknown
	}
}
