package doestore

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/casewise/doe/internal/monitoring"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed (already at latest version).
func (db *DB) MigrateUp(migrationsDir string) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(migrationsDir string) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (db *DB) MigrateVersion(migrationsDir string) (version uint, dirty bool, err error) {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if err != nil && errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce forces the migration version to a specific value. This
// should only be used to recover from a dirty migration state.
func (db *DB) MigrateForce(migrationsDir string, version int) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("force migration to version %d failed: %w", version, err)
	}
	return nil
}

func (db *DB) newMigrate(migrationsDir string) (*migrate.Migrate, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", absPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger adapts the package logging hook to migrate's Logger
// interface.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("migrate: "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
