package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens an in-memory sqlite database with the full schema. A
// single connection keeps every query on the same in-memory instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.FieldMappingModel{},
		&models.CrossSystemReferenceModel{},
		&models.SyncRunModel{},
		&models.EntitySyncConfigModel{},
		&models.SyncConflictModel{},
		&models.ConfirmationTokenModel{},
		&models.AuditLogModel{},
	))
	return db
}
