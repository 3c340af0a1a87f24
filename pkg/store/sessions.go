package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
)

const sessionColumns = `id, question, status, final_confidence_level, final_confidence_reason, claimed_by, claimed_at, created_at`

// CreateSession inserts a new session in INIT state and returns it. The
// question text is stored verbatim; parameter binding keeps hostile input
// inert.
func (s *Store) CreateSession(ctx context.Context, question string) (models.Session, error) {
	session := models.Session{
		ID:        uuid.NewString(),
		Question:  question,
		Status:    models.StatusInit,
		CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_sessions (id, question, status, created_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.Question, string(session.Status), formatTime(session.CreatedAt))
	if err != nil {
		return models.Session{}, fmt.Errorf("store: create session: %w", err)
	}
	return session, nil
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM query_sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("store: get session: %w", err)
	}
	return session, nil
}

// UpdateSessionStatus moves a session to a new lifecycle state. Terminal
// sessions are frozen, so the update skips them.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE query_sessions SET status = $1 WHERE id = $2 AND status NOT IN ($3, $4)`,
		string(status), id, string(models.StatusDone), string(models.StatusFailed))
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	return nil
}

// FinalizeSession writes the terminal status together with the final
// confidence fields. A session that is already terminal is left untouched.
func (s *Store) FinalizeSession(ctx context.Context, id string, status models.SessionStatus, level models.ConfidenceLevel, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE query_sessions
		    SET status = $1, final_confidence_level = $2, final_confidence_reason = $3
		  WHERE id = $4 AND status NOT IN ($5, $6)`,
		string(status), string(level), reason, id,
		string(models.StatusDone), string(models.StatusFailed))
	if err != nil {
		return fmt.Errorf("store: finalize session: %w", err)
	}
	return nil
}

// ClaimNextPending atomically claims the oldest unclaimed INIT session for
// workerID. Claim and selection happen in one statement, so concurrent
// workers can never claim the same session; the repeated claimed_by IS NULL
// guard covers engines that re-evaluate the subselect under concurrency.
// Returns ErrNotFound when nothing is pending.
func (s *Store) ClaimNextPending(ctx context.Context, workerID string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE query_sessions
		    SET claimed_by = $1, claimed_at = $2
		  WHERE id = (
		        SELECT id FROM query_sessions
		         WHERE status = $3 AND claimed_by IS NULL
		         ORDER BY created_at, id
		         LIMIT 1)
		    AND claimed_by IS NULL
		RETURNING `+sessionColumns,
		workerID, formatTime(now()), string(models.StatusInit))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("store: claim next pending: %w", err)
	}
	return session, nil
}

// FailOrphanedBefore fails every claimed, non-terminal session whose claim
// timestamp is older than cutoff. It returns how many sessions were failed.
func (s *Store) FailOrphanedBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE query_sessions
		    SET status = $1, final_confidence_level = $2, final_confidence_reason = $3
		  WHERE claimed_by IS NOT NULL
		    AND claimed_at < $4
		    AND status NOT IN ($5, $6)`,
		string(models.StatusFailed), string(models.ConfidenceLow), reason,
		formatTime(cutoff), string(models.StatusDone), string(models.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("store: fail orphaned sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: fail orphaned sessions: %w", err)
	}
	return n, nil
}

// FailClaimedByPod fails every non-terminal session claimed by a worker of
// the given pod. Worker IDs are "<pod>-worker-<n>", so the match is a prefix
// on "<pod>-". Used at startup to clear sessions a previous instance of this
// pod left behind.
func (s *Store) FailClaimedByPod(ctx context.Context, podID, reason string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE query_sessions
		    SET status = $1, final_confidence_level = $2, final_confidence_reason = $3
		  WHERE claimed_by LIKE $4
		    AND status NOT IN ($5, $6)`,
		string(models.StatusFailed), string(models.ConfidenceLow), reason,
		podID+"-%", string(models.StatusDone), string(models.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("store: fail sessions claimed by pod: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: fail sessions claimed by pod: %w", err)
	}
	return n, nil
}

// DeleteTerminalSessionsBefore removes DONE and FAILED sessions created
// before cutoff. Traces, search logs, evidence, snapshots, and cache entries
// go with them through the FK cascade; in-flight sessions are never touched.
// Returns how many sessions were removed.
func (s *Store) DeleteTerminalSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM query_sessions
		  WHERE status IN ($1, $2)
		    AND created_at < $3`,
		string(models.StatusDone), string(models.StatusFailed), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("store: delete terminal sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete terminal sessions: %w", err)
	}
	return n, nil
}

func scanSession(row rowScanner) (models.Session, error) {
	var (
		session       models.Session
		status        string
		level, reason sql.NullString
		claimedBy     sql.NullString
		claimedAt     sql.NullString
		createdAt     string
	)
	if err := row.Scan(&session.ID, &session.Question, &status, &level, &reason, &claimedBy, &claimedAt, &createdAt); err != nil {
		return models.Session{}, err
	}
	session.Status = models.SessionStatus(status)
	session.FinalConfidenceLevel = level.String
	session.FinalConfidenceReason = reason.String
	session.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		t, err := parseTime(claimedAt.String)
		if err != nil {
			return models.Session{}, err
		}
		session.ClaimedAt = &t
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return models.Session{}, err
	}
	session.CreatedAt = t
	return session, nil
}
