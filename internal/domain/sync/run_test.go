package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun(t *testing.T) *SyncRun {
	t.Helper()
	route := Route{Source: PlatformInternal, Target: PlatformAccounting}
	run, err := NewSyncRun(uuid.New(), route, EntityTypeCustomer, SyncModeFull, RunFilters{}, false)
	require.NoError(t, err)
	return run
}

func TestRunStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status RunStatus
		want   bool
	}{
		{"pending", RunStatusPending, false},
		{"running", RunStatusRunning, false},
		{"completed", RunStatusCompleted, true},
		{"failed", RunStatusFailed, true},
		{"cancelled", RunStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestNewSyncRun(t *testing.T) {
	route := Route{Source: PlatformStorefront, Target: PlatformInternal}

	t.Run("success", func(t *testing.T) {
		run, err := NewSyncRun(uuid.New(), route, EntityTypeOrder, SyncModeIncremental, RunFilters{}, true)
		require.NoError(t, err)
		assert.Equal(t, RunStatusPending, run.Status)
		assert.Equal(t, SyncModeIncremental, run.Mode)
		assert.True(t, run.DryRun)
		assert.NotEqual(t, uuid.Nil, run.ID)
		assert.Nil(t, run.StartedAt)
		assert.Nil(t, run.FinishedAt)
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewSyncRun(uuid.Nil, route, EntityTypeOrder, SyncModeFull, RunFilters{}, false)
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})

	t.Run("invalid route", func(t *testing.T) {
		bad := Route{Source: PlatformInternal, Target: PlatformInternal}
		_, err := NewSyncRun(uuid.New(), bad, EntityTypeOrder, SyncModeFull, RunFilters{}, false)
		assert.ErrorIs(t, err, ErrInvalidRoute)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		_, err := NewSyncRun(uuid.New(), route, EntityType("THING"), SyncModeFull, RunFilters{}, false)
		assert.ErrorIs(t, err, ErrInvalidEntityType)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := NewSyncRun(uuid.New(), route, EntityTypeOrder, SyncMode("DELTA"), RunFilters{}, false)
		assert.Error(t, err)
	})
}

func TestSyncRun_Start(t *testing.T) {
	run := newTestRun(t)

	require.NoError(t, run.Start())
	assert.Equal(t, RunStatusRunning, run.Status)
	require.NotNil(t, run.StartedAt)

	assert.ErrorIs(t, run.Start(), ErrRunInvalidTransition)
}

func TestSyncRun_Complete(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		run.RecordSuccess(true)
		run.RecordSuccess(false)

		require.NoError(t, run.Complete())
		assert.Equal(t, RunStatusCompleted, run.Status)
		assert.Equal(t, RunCounts{Fetched: 2, Created: 1, Updated: 1}, run.Counts)
		assert.NotNil(t, run.FinishedAt)
	})

	t.Run("partial failures still complete", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		run.RecordSuccess(true)
		run.RecordFailure("c-2", EntityTypeCustomer, EntityErrorTransformation, "required field missing")

		require.NoError(t, run.Complete())
		assert.Equal(t, RunStatusCompleted, run.Status)
		assert.Equal(t, 1, run.Counts.Failed)
		assert.Len(t, run.Errors, 1)
	})

	t.Run("only skips complete", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		run.RecordSkip()
		run.RecordFailure("c-9", EntityTypeCustomer, EntityErrorTransient, "timeout")

		require.NoError(t, run.Complete())
		assert.Equal(t, RunStatusCompleted, run.Status)
	})

	t.Run("every entity failed", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		run.RecordFailure("c-1", EntityTypeCustomer, EntityErrorTransient, "timeout")
		run.RecordFailure("c-2", EntityTypeCustomer, EntityErrorUnknown, "boom")

		require.NoError(t, run.Complete())
		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Equal(t, 2, run.Counts.Failed)
	})

	t.Run("empty run completes", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())

		require.NoError(t, run.Complete())
		assert.Equal(t, RunStatusCompleted, run.Status)
	})

	t.Run("not running", func(t *testing.T) {
		run := newTestRun(t)
		assert.ErrorIs(t, run.Complete(), ErrRunInvalidTransition)
	})
}

func TestSyncRun_Fail(t *testing.T) {
	run := newTestRun(t)
	require.NoError(t, run.Start())

	run.Fail("mapping validation failed")
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "mapping validation failed", run.ErrorMessage)
	assert.NotNil(t, run.FinishedAt)
}

func TestSyncRun_Cancel(t *testing.T) {
	t.Run("pending run", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Cancel())
		assert.Equal(t, RunStatusCancelled, run.Status)
	})

	t.Run("running run", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		require.NoError(t, run.Cancel())
		assert.Equal(t, RunStatusCancelled, run.Status)
	})

	t.Run("terminal run", func(t *testing.T) {
		run := newTestRun(t)
		require.NoError(t, run.Start())
		require.NoError(t, run.Complete())
		assert.ErrorIs(t, run.Cancel(), ErrRunInvalidTransition)
	})
}

func TestSyncRun_FailedEntityIDs(t *testing.T) {
	run := newTestRun(t)
	require.NoError(t, run.Start())
	run.RecordFailure("c-1", EntityTypeCustomer, EntityErrorTransient, "timeout")
	run.RecordFailure("c-2", EntityTypeCustomer, EntityErrorConflict, "pending conflict")
	run.RecordFailure("c-3", EntityTypeCustomer, EntityErrorTransformation, "bad date")

	// Conflict-pending entities wait for an operator; a retry would not help.
	assert.Equal(t, []string{"c-1", "c-3"}, run.FailedEntityIDs())
}
