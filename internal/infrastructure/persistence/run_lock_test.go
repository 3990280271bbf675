package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retailops/backend/internal/domain/sync"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPostgresRunLockManager_AcquireAndRelease(t *testing.T) {
	db, mock := setupMockDB(t)
	manager := NewPostgresRunLockManager(db)
	ctx := context.Background()
	tenantID := uuid.New()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(runLockKey(tenantID, route)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	acquired, err := manager.TryAcquire(ctx, tenantID, route)
	require.NoError(t, err)
	assert.True(t, acquired)

	mock.ExpectQuery("SELECT pg_advisory_unlock").
		WithArgs(runLockKey(tenantID, route)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	require.NoError(t, manager.Release(ctx, tenantID, route))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunLockManager_Contention(t *testing.T) {
	db, mock := setupMockDB(t)
	manager := NewPostgresRunLockManager(db)
	ctx := context.Background()
	tenantID := uuid.New()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(runLockKey(tenantID, route)).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	acquired, err := manager.TryAcquire(ctx, tenantID, route)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Releasing a lock this manager never took issues no unlock query.
	require.NoError(t, manager.Release(ctx, tenantID, route))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryRunLockManager(t *testing.T) {
	manager := NewInMemoryRunLockManager()
	ctx := context.Background()
	tenantID := uuid.New()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	acquired, err := manager.TryAcquire(ctx, tenantID, route)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = manager.TryAcquire(ctx, tenantID, route)
	require.NoError(t, err)
	assert.False(t, acquired)

	t.Run("other scopes are independent", func(t *testing.T) {
		reversed := sync.Route{Source: route.Target, Target: route.Source}
		acquired, err := manager.TryAcquire(ctx, tenantID, reversed)
		require.NoError(t, err)
		assert.True(t, acquired)

		acquired, err = manager.TryAcquire(ctx, uuid.New(), route)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	require.NoError(t, manager.Release(ctx, tenantID, route))
	acquired, err = manager.TryAcquire(ctx, tenantID, route)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRunLockKey_Deterministic(t *testing.T) {
	tenantID := uuid.New()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}

	assert.Equal(t, runLockKey(tenantID, route), runLockKey(tenantID, route))
	assert.NotEqual(t, runLockKey(tenantID, route), runLockKey(uuid.New(), route))
	reversed := sync.Route{Source: route.Target, Target: route.Source}
	assert.NotEqual(t, runLockKey(tenantID, route), runLockKey(tenantID, reversed))
}
