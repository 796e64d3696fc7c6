package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for a single project partition.
// One Store per registered project root; partitions never share state.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled,
// creating parent directories as needed.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create partition dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
  id          TEXT PRIMARY KEY,
  kind        TEXT NOT NULL,
  name        TEXT NOT NULL,
  file_path   TEXT NOT NULL,
  start_line  INTEGER NOT NULL,
  end_line    INTEGER NOT NULL,
  start_byte  INTEGER NOT NULL DEFAULT 0,
  parent_id   TEXT,
  signature   TEXT,
  docstring   TEXT,
  file_hash   TEXT NOT NULL,
  indexed_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  source_id   TEXT NOT NULL,
  target_id   TEXT NOT NULL,
  kind        TEXT NOT NULL,
  file_path   TEXT NOT NULL,
  line        INTEGER,
  resolved    INTEGER NOT NULL DEFAULT 0,
  ambiguous   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  content     TEXT NOT NULL,
  node_id     TEXT,
  tags        TEXT,
  source      TEXT NOT NULL DEFAULT 'user',
  created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS indexed_files (
  file_path   TEXT PRIMARY KEY,
  file_hash   TEXT NOT NULL,
  indexed_at  TIMESTAMP NOT NULL,
  node_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS index_errors (
  file_path   TEXT PRIMARY KEY,
  message     TEXT NOT NULL,
  occurred_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key         TEXT PRIMARY KEY,
  value       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_file    ON nodes(file_path);
CREATE INDEX IF NOT EXISTS idx_nodes_name    ON nodes(name);
CREATE INDEX IF NOT EXISTS idx_nodes_parent  ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_kind    ON nodes(kind);
CREATE INDEX IF NOT EXISTS idx_edges_source  ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target  ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_kind    ON edges(kind);
CREATE INDEX IF NOT EXISTS idx_edges_file    ON edges(file_path);
CREATE INDEX IF NOT EXISTS idx_edges_unresolved ON edges(resolved) WHERE resolved = 0;
CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_unique ON edges(source_id, target_id, kind);
CREATE INDEX IF NOT EXISTS idx_obs_node      ON observations(node_id);
CREATE INDEX IF NOT EXISTS idx_obs_created   ON observations(created_at);
CREATE INDEX IF NOT EXISTS idx_obs_source    ON observations(source);
`

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// GetMetadata returns the value for key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

// Stats returns row counts across the partition's tables.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}
	for _, c := range []struct {
		table string
		dest  *int
	}{
		{"nodes", &stats.Nodes},
		{"edges", &stats.Edges},
		{"observations", &stats.Observations},
		{"indexed_files", &stats.IndexedFiles},
		{"index_errors", &stats.IndexErrors},
	} {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return stats, nil
}
