/*
Package storage implements the persistent fragment store.

Fragments live in a single SQLite database (modernc.org/sqlite, pure Go)
keyed by fragment_id, with secondary indexes on (api_id, fragment_type)
for extraction-time lookups and on last_used for eviction sweeps.

Unlike an optional history cache, the fragment store is authoritative:
open and migration failures are surfaced to the caller instead of
degrading to no-ops.
*/
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a fragment id has no stored fragment.
var ErrNotFound = errors.New("fragment not found")

// Store is the SQLite-backed fragment store.
//
// *sql.DB is safe for concurrent use; reads run in parallel and usage
// counter updates are single atomic UPDATE statements, so no store-wide
// lock is held on the hot paths.
type Store struct {
	db       *sql.DB
	dbPath   string
	initOnce sync.Once
}

// DefaultDBPath returns the standard database location, ~/.api-hub-mcp/fragments.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".api-hub-mcp", "fragments.db"), nil
}

// NewStore creates a fragment store backed by the database at dbPath.
// Call Init before use.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Init opens the database and runs schema migrations.
func (s *Store) Init() error {
	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		if err := db.Ping(); err != nil {
			db.Close()
			initErr = fmt.Errorf("failed to ping database: %w", err)
			return
		}

		// WAL keeps readers unblocked while ingestion writes.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			log.Printf("Warning: failed to enable WAL mode: %v", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			log.Printf("Warning: failed to set busy timeout: %v", err)
		}

		s.db = db

		if err := s.runMigrations(); err != nil {
			db.Close()
			s.db = nil
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

// runMigrations executes database schema migrations.
func (s *Store) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version < m.version {
			log.Printf("Running migration %d: %s", m.version, m.name)
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *Store) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *Store) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *Store) setMigrationVersion(version int) error {
	_, err := s.db.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		version, fmt.Sprintf("migration_%d", version),
	)
	return err
}

// migration001InitialSchema creates the fragments table and its indexes.
func (s *Store) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS fragments (
			fragment_id TEXT PRIMARY KEY,
			api_id TEXT NOT NULL,
			fragment_type TEXT NOT NULL,
			natural_key TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used TEXT,
			embedding BLOB
		)
	`); err != nil {
		return fmt.Errorf("failed to create fragments table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_fragments_api_type
		ON fragments(api_id, fragment_type)
	`); err != nil {
		return fmt.Errorf("failed to create api/type index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_fragments_last_used
		ON fragments(last_used)
	`); err != nil {
		return fmt.Errorf("failed to create last_used index: %w", err)
	}

	return nil
}
