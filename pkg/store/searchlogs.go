package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
)

// InsertSearchLog appends one audit row for a search invocation. QueryUsed
// is the strategy-modified query string, never a prompt.
func (s *Store) InsertSearchLog(ctx context.Context, log models.SearchLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (id, session_id, attempt_number, query_used, num_docs, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), log.SessionID, log.AttemptNumber, log.QueryUsed, log.NumDocs, log.Success, formatTime(now()))
	if err != nil {
		return fmt.Errorf("store: insert search log: %w", err)
	}
	return nil
}

// ListSearchLogs returns a session's search audit rows ordered by attempt.
func (s *Store) ListSearchLogs(ctx context.Context, sessionID string) ([]models.SearchLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, attempt_number, query_used, num_docs, success, created_at
		   FROM search_logs
		  WHERE session_id = $1
		  ORDER BY attempt_number, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list search logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SearchLog
	for rows.Next() {
		var (
			log       models.SearchLog
			createdAt string
		)
		if err := rows.Scan(&log.ID, &log.SessionID, &log.AttemptNumber, &log.QueryUsed, &log.NumDocs, &log.Success, &createdAt); err != nil {
			return nil, fmt.Errorf("store: list search logs: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: list search logs: %w", err)
		}
		log.CreatedAt = t
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list search logs: %w", err)
	}
	return logs, nil
}
