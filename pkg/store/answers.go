package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
)

// InsertAnswerSnapshot records one synthesis outcome. Notes is stored as
// NULL when empty so that absence and empty text read back the same way.
func (s *Store) InsertAnswerSnapshot(ctx context.Context, snapshot models.AnswerSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answer_snapshots (id, session_id, answer_text, confidence_level, confidence_reason, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), snapshot.SessionID, snapshot.AnswerText,
		string(snapshot.ConfidenceLevel), snapshot.ConfidenceReason,
		nullString(snapshot.Notes), formatTime(now()))
	if err != nil {
		return fmt.Errorf("store: insert answer snapshot: %w", err)
	}
	return nil
}

// LatestAnswerSnapshot returns the most recent snapshot for a session, or
// ErrNotFound when the session never reached synthesis.
func (s *Store) LatestAnswerSnapshot(ctx context.Context, sessionID string) (models.AnswerSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, answer_text, confidence_level, confidence_reason, notes, created_at
		   FROM answer_snapshots
		  WHERE session_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1`, sessionID)

	var (
		snapshot  models.AnswerSnapshot
		level     string
		notes     sql.NullString
		createdAt string
	)
	err := row.Scan(&snapshot.ID, &snapshot.SessionID, &snapshot.AnswerText, &level, &snapshot.ConfidenceReason, &notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnswerSnapshot{}, ErrNotFound
	}
	if err != nil {
		return models.AnswerSnapshot{}, fmt.Errorf("store: latest answer snapshot: %w", err)
	}
	snapshot.ConfidenceLevel = models.ConfidenceLevel(level)
	snapshot.Notes = notes.String
	t, err := parseTime(createdAt)
	if err != nil {
		return models.AnswerSnapshot{}, fmt.Errorf("store: latest answer snapshot: %w", err)
	}
	snapshot.CreatedAt = t
	return snapshot, nil
}
