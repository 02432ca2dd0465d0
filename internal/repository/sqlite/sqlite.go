// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure-Go translation of SQLite — no CGo, no C
// compiler, works everywhere Go works. The blank import below registers it
// with database/sql as the driver named "sqlite".
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path or permissions problem
	// surfaces now, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: migrating: %w", err)
	}

	return db, nil
}

// migrate creates the schema if it does not exist yet.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		success     INTEGER NOT NULL,
		exit_code   INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_created_at
		ON executions(created_at DESC);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("creating executions table: %w", err)
	}
	return nil
}

// Close closes the connection pool, flushing pending writes.
func (db *DB) Close() error {
	return db.conn.Close()
}
