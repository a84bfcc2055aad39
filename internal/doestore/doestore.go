// Package doestore persists generated designs in SQLite, keyed for reuse.
//
// The engine itself is state-free between calls; this package is the
// explicit, keyed, invalidate-on-input-change cache that lives outside it.
// A record's cache key digests the parameter set fingerprint, the
// technique, and the generation options, so a lookup can only ever return a
// design generated from byte-identical inputs.
package doestore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/casewise/doe/internal/monitoring"
	_ "modernc.org/sqlite"
)

// schema.sql defines the designs table and its indexes. Fresh databases are
// initialized from it directly; existing databases are managed by the
// migrations under migrations/.
//
//go:embed schema.sql
var schemaSQL string

// DB wraps the sqlite handle used by the store.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the design store database at path and
// ensures the schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	monitoring.Logf("initialized design store at %s", path)
	return &DB{db}, nil
}

// retryOnBusy retries a write a few times when sqlite reports a locked or
// busy database, which can happen under concurrent writers even with WAL.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "database table is locked") {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}
