package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/sync"
)

// fakeRunHistory serves FindLastSuccessful from a per-entity-type map.
type fakeRunHistory struct {
	lastByType map[sync.EntityType]*sync.SyncRun
}

func (r *fakeRunHistory) Save(context.Context, *sync.SyncRun) error { return nil }

func (r *fakeRunHistory) FindByID(context.Context, uuid.UUID, uuid.UUID) (*sync.SyncRun, error) {
	return nil, sync.ErrRunNotFound
}

func (r *fakeRunHistory) FindLastSuccessful(_ context.Context, _ uuid.UUID, _ sync.Route, entityType sync.EntityType) (*sync.SyncRun, error) {
	run, ok := r.lastByType[entityType]
	if !ok {
		return nil, sync.ErrRunNotFound
	}
	return run, nil
}

func (r *fakeRunHistory) List(context.Context, uuid.UUID, sync.RunListFilter) ([]sync.SyncRun, int64, error) {
	return nil, 0, nil
}

func completedRun(finishedAt time.Time) *sync.SyncRun {
	return &sync.SyncRun{
		ID:         uuid.New(),
		Status:     sync.RunStatusCompleted,
		FinishedAt: &finishedAt,
	}
}

// startCatchUpTrigger starts a trigger whose only activity within the test
// window is the startup catch-up round.
func startCatchUpTrigger(t *testing.T, source sync.ScheduleSource, runs sync.SyncRunRepository) *fakeExecutor {
	t.Helper()

	executor := &fakeExecutor{}
	schedulerConfig := DefaultSyncSchedulerConfig()
	schedulerConfig.MaxConcurrentJobs = 1
	scheduler := startScheduler(t, schedulerConfig, executor)

	config := IntervalTriggerConfig{
		Enabled:             true,
		Interval:            time.Minute,
		CatchUpOnStart:      true,
		MaxMissedBeforeFull: 12,
	}
	trigger, err := NewIntervalTrigger(config, scheduler, source, runs, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, trigger.Start(context.Background()))
	t.Cleanup(trigger.Stop)

	return executor
}

func TestIntervalTriggerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*IntervalTriggerConfig)
		wantErr bool
	}{
		{"defaults are valid", func(*IntervalTriggerConfig) {}, false},
		{"sub-minute interval", func(c *IntervalTriggerConfig) { c.Interval = 30 * time.Second }, true},
		{"zero missed threshold", func(c *IntervalTriggerConfig) { c.MaxMissedBeforeFull = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultIntervalTriggerConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIntervalTrigger_CatchUpSeedsUnsyncedScope(t *testing.T) {
	source := &fakeScheduleSource{schedules: []sync.SyncSchedule{{
		TenantID:    uuid.New(),
		Route:       mustRoute(t, sync.PlatformInternal, sync.PlatformStorefront),
		EntityTypes: []sync.EntityType{sync.EntityTypeCustomer, sync.EntityTypeOrder},
	}}}
	executor := startCatchUpTrigger(t, source, &fakeRunHistory{lastByType: map[sync.EntityType]*sync.SyncRun{}})

	requests := waitForRequests(t, executor, 2)
	var types []sync.EntityType
	for _, req := range requests {
		assert.Equal(t, sync.SyncModeFull, req.Mode)
		types = append(types, req.EntityType)
	}
	assert.ElementsMatch(t, []sync.EntityType{sync.EntityTypeCustomer, sync.EntityTypeOrder}, types)
}

func TestIntervalTrigger_FreshScopeNotResubmitted(t *testing.T) {
	source := &fakeScheduleSource{schedules: []sync.SyncSchedule{{
		TenantID:    uuid.New(),
		Route:       mustRoute(t, sync.PlatformInternal, sync.PlatformStorefront),
		EntityTypes: []sync.EntityType{sync.EntityTypeCustomer},
	}}}
	runs := &fakeRunHistory{lastByType: map[sync.EntityType]*sync.SyncRun{
		sync.EntityTypeCustomer: completedRun(time.Now().Add(-30 * time.Second)),
	}}
	executor := startCatchUpTrigger(t, source, runs)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, executor.recorded())
}

func TestIntervalTrigger_OverdueScopeResyncsIncrementally(t *testing.T) {
	source := &fakeScheduleSource{schedules: []sync.SyncSchedule{{
		TenantID:    uuid.New(),
		Route:       mustRoute(t, sync.PlatformInternal, sync.PlatformStorefront),
		EntityTypes: []sync.EntityType{sync.EntityTypeProduct},
	}}}
	runs := &fakeRunHistory{lastByType: map[sync.EntityType]*sync.SyncRun{
		sync.EntityTypeProduct: completedRun(time.Now().Add(-2 * time.Minute)),
	}}
	executor := startCatchUpTrigger(t, source, runs)

	requests := waitForRequests(t, executor, 1)
	require.Len(t, requests, 1)
	assert.Equal(t, sync.EntityTypeProduct, requests[0].EntityType)
	assert.Equal(t, sync.SyncModeIncremental, requests[0].Mode)
}

func TestIntervalTrigger_StaleScopeResyncsInFull(t *testing.T) {
	source := &fakeScheduleSource{schedules: []sync.SyncSchedule{{
		TenantID:    uuid.New(),
		Route:       mustRoute(t, sync.PlatformInternal, sync.PlatformStorefront),
		EntityTypes: []sync.EntityType{sync.EntityTypeProduct},
	}}}
	// Twenty missed minutes against a one minute interval and a twelve
	// interval stale threshold forces a full resync.
	runs := &fakeRunHistory{lastByType: map[sync.EntityType]*sync.SyncRun{
		sync.EntityTypeProduct: completedRun(time.Now().Add(-20 * time.Minute)),
	}}
	executor := startCatchUpTrigger(t, source, runs)

	requests := waitForRequests(t, executor, 1)
	require.Len(t, requests, 1)
	assert.Equal(t, sync.SyncModeFull, requests[0].Mode)
}
