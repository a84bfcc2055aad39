package doestore

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// migrationsDir resolves the repository migrations directory relative to
// this package.
const migrationsDir = "../../migrations"

// openBare opens a database without running schema initialization, so the
// migrations manage the schema from scratch.
func openBare(t *testing.T) *DB {
	t.Helper()
	raw, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	db := &DB{raw}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUpDown(t *testing.T) {
	db := openBare(t)

	require.NoError(t, db.MigrateUp(migrationsDir))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// The designs table exists after up.
	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='designs'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "designs", name)

	// Up again is a no-op.
	require.NoError(t, db.MigrateUp(migrationsDir))

	require.NoError(t, db.MigrateDown(migrationsDir))
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='designs'`).Scan(&name)
	assert.Error(t, err, "designs table should be gone after down")
}

func TestMigrationsMatchEmbeddedSchema(t *testing.T) {
	// A database initialized by Open and one built by migrations must agree
	// on the designs table shape; drift between schema.sql and the
	// migrations breaks fresh-vs-upgraded installs.
	migrated := openBare(t)
	require.NoError(t, migrated.MigrateUp(migrationsDir))

	fresh, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { fresh.Close() })

	columns := func(db *DB) []string {
		rows, err := db.Query(`SELECT name FROM pragma_table_info('designs') ORDER BY cid`)
		require.NoError(t, err)
		defer rows.Close()
		var cols []string
		for rows.Next() {
			var c string
			require.NoError(t, rows.Scan(&c))
			cols = append(cols, c)
		}
		require.NoError(t, rows.Err())
		return cols
	}

	assert.Equal(t, columns(fresh), columns(migrated))
}
