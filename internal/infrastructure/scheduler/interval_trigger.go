package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/sync"
)

// IntervalTriggerConfig holds configuration for the interval trigger
type IntervalTriggerConfig struct {
	// Enabled indicates if periodic triggering is enabled
	Enabled bool
	// Interval between scheduled sync rounds
	Interval time.Duration
	// CatchUpOnStart triggers an immediate round when the last successful
	// run is overdue at startup
	CatchUpOnStart bool
	// MaxMissedBeforeFull is the number of missed intervals after which the
	// catch-up round runs in full mode instead of incremental
	MaxMissedBeforeFull int
}

// DefaultIntervalTriggerConfig returns default configuration
func DefaultIntervalTriggerConfig() IntervalTriggerConfig {
	return IntervalTriggerConfig{
		Enabled:             true,
		Interval:            15 * time.Minute,
		CatchUpOnStart:      true,
		MaxMissedBeforeFull: 12,
	}
}

// Validate validates the configuration
func (c *IntervalTriggerConfig) Validate() error {
	if c.Interval < time.Minute {
		return ErrInvalidConfig
	}
	if c.MaxMissedBeforeFull <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// IntervalTrigger enqueues sync rounds on a fixed interval. Each round
// enumerates the scopes with an active mapping and submits one incremental
// run per entity type, parents before children. At startup it can catch up
// scopes whose last successful run is overdue; a scope that missed enough
// intervals is resynced in full because the incremental watermark is too
// stale to trust cheap scans.
type IntervalTrigger struct {
	config    IntervalTriggerConfig
	scheduler *SyncScheduler
	source    sync.ScheduleSource
	runs      sync.SyncRunRepository
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(
	config IntervalTriggerConfig,
	scheduler *SyncScheduler,
	source sync.ScheduleSource,
	runs sync.SyncRunRepository,
	logger *zap.Logger,
) (*IntervalTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &IntervalTrigger{
		config:    config,
		scheduler: scheduler,
		source:    source,
		runs:      runs,
		logger:    logger,
	}, nil
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("catch_up_on_start", t.config.CatchUpOnStart),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
	t.logger.Info("Interval trigger stopped")
}

// runLoop fires rounds on the configured interval
func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.CatchUpOnStart {
		t.catchUp(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.triggerRound(ctx)
		}
	}
}

// triggerRound submits one incremental run per scheduled scope
func (t *IntervalTrigger) triggerRound(ctx context.Context) {
	schedules, err := t.source.ListSchedules(ctx)
	if err != nil {
		t.logger.Error("Failed to list sync schedules", zap.Error(err))
		return
	}

	submitted := 0
	for _, sched := range schedules {
		if err := t.scheduler.SubmitSchedule(sched, sync.SyncModeIncremental); err != nil {
			t.logger.Warn("Failed to submit scheduled sync",
				zap.String("tenant_id", sched.TenantID.String()),
				zap.String("route", sched.Route.String()),
				zap.Error(err),
			)
			continue
		}
		submitted += len(sched.EntityTypes)
	}

	t.logger.Debug("Scheduled sync round submitted",
		zap.Int("schedules", len(schedules)),
		zap.Int("runs", submitted),
	)
}

// catchUp submits runs for scopes whose last successful run is overdue.
// A scope without history, or one stale beyond MaxMissedBeforeFull
// intervals, gets a full sync.
func (t *IntervalTrigger) catchUp(ctx context.Context) {
	schedules, err := t.source.ListSchedules(ctx)
	if err != nil {
		t.logger.Error("Failed to list sync schedules for catch-up", zap.Error(err))
		return
	}

	staleAfter := t.config.Interval * time.Duration(t.config.MaxMissedBeforeFull)
	now := time.Now()

	for _, sched := range schedules {
		for _, entityType := range sched.EntityTypes {
			mode, due := t.catchUpMode(ctx, sched, entityType, now, staleAfter)
			if !due {
				continue
			}
			err := t.scheduler.SubmitSchedule(sync.SyncSchedule{
				TenantID:    sched.TenantID,
				Route:       sched.Route,
				EntityTypes: []sync.EntityType{entityType},
			}, mode)
			if err != nil {
				t.logger.Warn("Failed to submit catch-up sync",
					zap.String("tenant_id", sched.TenantID.String()),
					zap.String("route", sched.Route.String()),
					zap.String("entity_type", entityType.String()),
					zap.Error(err),
				)
				continue
			}
			t.logger.Info("Catch-up sync submitted",
				zap.String("tenant_id", sched.TenantID.String()),
				zap.String("route", sched.Route.String()),
				zap.String("entity_type", entityType.String()),
				zap.String("mode", string(mode)),
			)
		}
	}
}

// catchUpMode decides whether a scope is overdue and which mode to use
func (t *IntervalTrigger) catchUpMode(ctx context.Context, sched sync.SyncSchedule, entityType sync.EntityType, now time.Time, staleAfter time.Duration) (sync.SyncMode, bool) {
	last, err := t.runs.FindLastSuccessful(ctx, sched.TenantID, sched.Route, entityType)
	if err != nil {
		if errors.Is(err, sync.ErrRunNotFound) {
			// Never synced: seed the scope with a full run.
			return sync.SyncModeFull, true
		}
		t.logger.Warn("Failed to read last successful run during catch-up",
			zap.String("tenant_id", sched.TenantID.String()),
			zap.String("route", sched.Route.String()),
			zap.Error(err),
		)
		return sync.SyncModeIncremental, false
	}
	if last.FinishedAt == nil {
		return sync.SyncModeFull, true
	}

	age := now.Sub(*last.FinishedAt)
	if age < t.config.Interval {
		return sync.SyncModeIncremental, false
	}
	if age >= staleAfter {
		return sync.SyncModeFull, true
	}
	return sync.SyncModeIncremental, true
}
