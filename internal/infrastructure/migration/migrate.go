package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Runner applies versioned SQL migrations from a directory against the
// sync database. It wraps golang-migrate so the CLI and server startup
// share one code path.
type Runner struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// NewRunner builds a Runner on top of an open database handle.
func NewRunner(db *sql.DB, dir string, log *zap.Logger) (*Runner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migration source %s: %w", dir, err)
	}

	return &Runner{m: m, log: log}, nil
}

// Apply runs every pending migration.
func (r *Runner) Apply() error {
	err := r.m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.log.Info("Schema already up to date")
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}
	return r.logVersion("Schema migrated")
}

// Rollback reverts every applied migration.
func (r *Runner) Rollback() error {
	err := r.m.Down()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.log.Info("Nothing to roll back")
		return nil
	case err != nil:
		return fmt.Errorf("roll back migrations: %w", err)
	}
	r.log.Info("All migrations rolled back")
	return nil
}

// Step applies n migrations forward, or reverts -n when n is negative.
func (r *Runner) Step(n int) error {
	err := r.m.Steps(n)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.log.Info("Nothing to apply", zap.Int("steps", n))
		return nil
	case err != nil:
		return fmt.Errorf("step %d migrations: %w", n, err)
	}
	return r.logVersion("Schema stepped")
}

// To migrates the schema up or down to an exact version.
func (r *Runner) To(version uint) error {
	err := r.m.Migrate(version)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.log.Info("Already at version", zap.Uint("version", version))
		return nil
	case err != nil:
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	return r.logVersion("Schema migrated to version")
}

// Status reports the current version and whether the schema is dirty.
// A fresh database reports version 0.
func (r *Runner) Status() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running any SQL. Only
// for recovering a dirty schema after a failed migration.
func (r *Runner) Force(version int) error {
	r.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every object in the database.
func (r *Runner) Drop() error {
	r.log.Warn("Dropping all database objects")
	if err := r.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

// Close releases the migration source and database driver.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

func (r *Runner) logVersion(msg string) error {
	version, dirty, err := r.Status()
	if err != nil {
		return err
	}
	r.log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
