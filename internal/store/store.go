package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the content graph: nodes, references
// between nodes, and the discovery frontier. All multi-statement operations
// run inside a single transaction so partial application is impossible.
type Store struct {
	conn *sql.DB
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	slug       TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	node_type  TEXT NOT NULL DEFAULT 'page',
	category   TEXT NOT NULL DEFAULT '',
	out_refs   INTEGER NOT NULL DEFAULT 0,
	in_refs    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS refs (
	source_slug TEXT NOT NULL,
	target_slug TEXT NOT NULL,
	UNIQUE(source_slug, target_slug)
);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_slug);

CREATE TABLE IF NOT EXISTS frontier (
	target_slug   TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	depth         INTEGER NOT NULL,
	source_slug   TEXT NOT NULL DEFAULT '',
	discovered_at INTEGER NOT NULL,
	claimed_at    INTEGER,
	completed_at  INTEGER,
	status        TEXT NOT NULL DEFAULT 'pending'
	              CHECK (status IN ('pending', 'in_progress', 'completed')),
	priority      INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_frontier_live
	ON frontier(target_slug) WHERE status != 'completed';
CREATE INDEX IF NOT EXISTS idx_frontier_pending
	ON frontier(status, priority, depth, discovered_at);
`

// Open opens (creating if necessary) a tendril database with WAL mode and
// a busy timeout suitable for concurrent worker access. Pragmas go through
// the DSN so every pooled connection gets them, not just the first.
func Open(path string) (*Store, error) {
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{conn: conn, Path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries.
func (s *Store) Conn() *sql.DB {
	return s.conn
}
