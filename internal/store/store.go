// Package store implements the durable local store on SQLite. It is the
// single owner of persisted state: the dual-path repositories and the
// reconciliation engine write through it, everything else only reads.
//
// Rows with synced = 0 are the outstanding sync queue; no separate queue
// structure exists.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/corbin/stride/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS goals (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	frequency   TEXT NOT NULL DEFAULT 'daily',
	target_date TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	synced      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS checkins (
	id         TEXT PRIMARY KEY,
	goal_id    TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
	completed  INTEGER NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	date       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	synced     INTEGER NOT NULL DEFAULT 0,
	UNIQUE(goal_id, date)
);

CREATE INDEX IF NOT EXISTS idx_checkins_goal ON checkins(goal_id);
CREATE INDEX IF NOT EXISTS idx_goals_synced ON goals(synced);
CREATE INDEX IF NOT EXISTS idx_checkins_synced ON checkins(synced);
`

// Store wraps a sql.DB with goal/check-in operations. A single mutex
// serializes writers so that identity rewrites stay atomic with respect to
// concurrent readers even when the caller runs on real OS threads.
type Store struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// wrap tags a storage-engine failure with the op name and apperr.ErrStorage
// so callers can classify it without knowing the driver.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: %s: %w", op, errors.Join(apperr.ErrStorage, err))
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint trip.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
