// Package store persists query sessions and their audit trail over
// database/sql. All SQL is written once and runs unchanged on PostgreSQL and
// SQLite: placeholders are $N in strictly ascending order, UUIDs travel as
// 36-character TEXT, and timestamps are fixed-width ISO-8601 UTC TEXT so
// lexicographic comparison matches chronological order.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// timeLayout is the canonical timestamp encoding. Fixed width keeps TEXT
// comparison (expires_at > now, claimed_at < cutoff) correct on both engines.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store exposes the repositories backing the planner, the queue, and the
// query service as methods on a single value.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New wraps an open database handle. Migrations are the caller's concern.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "store")}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// now returns the current instant truncated to the precision the layout can
// round-trip.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
