// Package storage is LeIndex's content-addressed persistence layer: a
// single modernc.org/sqlite database per workspace holding symbols, edges,
// the analysis cache, and per-project generation counters, per spec §4.4.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/leindex/leindex/internal/errors"
)

// Store is the single entry point into the database. All exported methods
// are safe for concurrent use; writers take the store-wide write lock so
// batch operations stay transactional. The database/sql pool holds a single
// connection, so readers wait while a write or batch is using it.
type Store struct {
	db     *sql.DB
	path   string
	writeMu sync.Mutex
}

// Open creates or opens the sqlite database at path, enabling WAL mode, a
// busy timeout, and foreign-key enforcement.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.Internal, "storage.mkdir_failed", "failed to create database directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "storage.open_failed", "failed to open database", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers across connections

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path Open was given.
func (s *Store) Path() string {
	return s.path
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id            TEXT PRIMARY KEY,
	root_path     TEXT NOT NULL,
	generation    INTEGER NOT NULL DEFAULT 0,
	last_indexed  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS symbols (
	id           INTEGER PRIMARY KEY,
	project_id   TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	symbol_name  TEXT NOT NULL,
	kind         TEXT NOT NULL,
	signature    TEXT NOT NULL DEFAULT '',
	complexity   INTEGER NOT NULL DEFAULT 0,
	start_line   INTEGER NOT NULL DEFAULT 0,
	end_line     INTEGER NOT NULL DEFAULT 0,
	content_hash BLOB NOT NULL,
	embedding    BLOB,
	updated_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_symbols_project_file ON symbols(project_id, file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(symbol_name);
CREATE INDEX IF NOT EXISTS idx_symbols_content_hash ON symbols(content_hash);

CREATE TABLE IF NOT EXISTS edges (
	caller_id INTEGER NOT NULL,
	callee_id INTEGER NOT NULL,
	edge_type TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (caller_id, callee_id, edge_type),
	FOREIGN KEY (caller_id) REFERENCES symbols(id) ON DELETE CASCADE,
	FOREIGN KEY (callee_id) REFERENCES symbols(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS analysis_cache (
	content_hash    BLOB PRIMARY KEY,
	cfg_blob        BLOB NOT NULL,
	complexity_blob BLOB NOT NULL,
	timestamp       INTEGER NOT NULL
);
`

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(errors.Corrupted, "storage.schema_init_failed", "failed to initialize schema", err)
	}
	return nil
}

// mapSQLiteErr classifies a raw database/sql error into the taxonomy's
// Category so callers can branch on Unavailable/Corrupted without string
// matching at every call site.
func mapSQLiteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case contains(msg, "disk") && contains(msg, "full"):
		return errors.Wrap(errors.Unavailable, "storage.disk_full", "storage device is full", err)
	case contains(msg, "FOREIGN KEY"):
		return errors.Wrap(errors.InvalidInput, "storage.foreign_key_violation", "edge references an unknown symbol id", err)
	case contains(msg, "malformed") || contains(msg, "corrupt"):
		return errors.Wrap(errors.Corrupted, "storage.database_corrupted", "database file is corrupted", err)
	default:
		return errors.Wrap(errors.Internal, "storage."+op+"_failed", "storage operation failed", err)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
