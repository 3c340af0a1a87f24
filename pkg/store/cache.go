package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/veriq-io/veriq/pkg/models"
)

// UpsertCacheEntry maps a query fingerprint to the session whose result
// answered it. A later write for the same fingerprint replaces the mapping
// and its expiry.
func (s *Store) UpsertCacheEntry(ctx context.Context, queryHash, sessionID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_cache (query_hash, session_id, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (query_hash) DO UPDATE
		    SET session_id = excluded.session_id, expires_at = excluded.expires_at`,
		queryHash, sessionID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("store: upsert cache entry: %w", err)
	}
	return nil
}

// GetCacheEntry returns the entry for queryHash if it expires strictly after
// now. Missing and expired entries both come back as ErrNotFound; an entry
// expiring exactly at now is a miss.
func (s *Store) GetCacheEntry(ctx context.Context, queryHash string, now time.Time) (models.QueryCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT query_hash, session_id, expires_at
		   FROM query_cache
		  WHERE query_hash = $1 AND expires_at > $2`,
		queryHash, formatTime(now))

	var (
		entry     models.QueryCacheEntry
		expiresAt string
	)
	err := row.Scan(&entry.QueryHash, &entry.SessionID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueryCacheEntry{}, ErrNotFound
	}
	if err != nil {
		return models.QueryCacheEntry{}, fmt.Errorf("store: get cache entry: %w", err)
	}
	t, err := parseTime(expiresAt)
	if err != nil {
		return models.QueryCacheEntry{}, fmt.Errorf("store: get cache entry: %w", err)
	}
	entry.ExpiresAt = t
	return entry, nil
}

// DeleteExpiredCacheEntries removes every cache row whose expiry is at or
// before now. Reads already treat such rows as misses; this reclaims them.
// Returns how many rows were removed.
func (s *Store) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM query_cache WHERE expires_at <= $1`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("store: delete expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete expired cache entries: %w", err)
	}
	return n, nil
}
