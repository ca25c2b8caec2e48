// Package history is an optional modernc.org/sqlite-backed audit log of
// mathserver requests: every /evaluate and /derive call that reaches the
// parser is recorded with a google/uuid request ID, the expression text, the
// outcome, and a timestamp (a request rejected earlier, for a bad body, an
// empty expression or a missing with_respect_to, is not) — grounded on server/dao/sqlite's *DB-per-table, init()-creates-
// schema idiom (sessions.go/commands.go).
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded request.
type Entry struct {
	ID         uuid.UUID
	Operation  string // "evaluate" or "derive"
	Expression string
	Result     string // formatted result, or empty on failure
	Err        string // error message, or empty on success
	Backend    string
	CreatedAt  time.Time
}

// Store is a handle to the history database. A zero Store (no db) is a
// valid no-op store, so history can be disabled without special-casing
// every call site.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite file at path and ensures its schema
// exists. An empty path returns a no-op Store.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id TEXT NOT NULL PRIMARY KEY,
		operation TEXT NOT NULL,
		expression TEXT NOT NULL,
		result TEXT NOT NULL,
		error TEXT NOT NULL,
		backend TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	return nil
}

// Record persists e, tagging it with a freshly generated request ID and
// returning the populated Entry. A no-op Store silently drops the record.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()

	if s.db == nil {
		return e, nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, operation, expression, result, error, backend, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Operation, e.Expression, e.Result, e.Err, e.Backend, e.CreatedAt.Unix(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: insert: %w", err)
	}
	return e, nil
}

// Recent returns the most recent limit entries, newest first. A no-op
// Store always returns an empty slice.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, expression, result, error, backend, created_at FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var id string
		var created int64
		if err := rows.Scan(&id, &e.Operation, &e.Expression, &e.Result, &e.Err, &e.Backend, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("history: parse id: %w", err)
		}
		e.ID = parsed
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle. A no-op Store's Close is
// itself a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
