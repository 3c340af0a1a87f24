package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
)

// InsertPlannerTrace appends one audit row for a VERIFY evaluation. The
// store stamps the row ID and timestamp; everything else is recorded as
// given. Reason text is decision metadata, never oracle output.
func (s *Store) InsertPlannerTrace(ctx context.Context, trace models.PlannerTrace) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO planner_traces
		   (id, session_id, attempt_number, planner_state, verification_decision, strategy_used, num_docs, stop_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), trace.SessionID, trace.AttemptNumber, string(trace.PlannerState),
		string(trace.Decision), string(trace.Strategy), trace.NumDocs,
		nullString(trace.StopReason), formatTime(now()))
	if err != nil {
		return fmt.Errorf("store: insert planner trace: %w", err)
	}
	return nil
}

// ListPlannerTraces returns a session's audit rows ordered by attempt.
func (s *Store) ListPlannerTraces(ctx context.Context, sessionID string) ([]models.PlannerTrace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, attempt_number, planner_state, verification_decision, strategy_used, num_docs, stop_reason, created_at
		   FROM planner_traces
		  WHERE session_id = $1
		  ORDER BY attempt_number, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list planner traces: %w", err)
	}
	defer rows.Close()

	var traces []models.PlannerTrace
	for rows.Next() {
		trace, err := scanPlannerTrace(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list planner traces: %w", err)
		}
		traces = append(traces, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list planner traces: %w", err)
	}
	return traces, nil
}

func scanPlannerTrace(row rowScanner) (models.PlannerTrace, error) {
	var (
		trace      models.PlannerTrace
		state      string
		decision   string
		strategy   string
		stopReason sql.NullString
		createdAt  string
	)
	if err := row.Scan(&trace.ID, &trace.SessionID, &trace.AttemptNumber, &state, &decision, &strategy, &trace.NumDocs, &stopReason, &createdAt); err != nil {
		return models.PlannerTrace{}, err
	}
	trace.PlannerState = models.SessionStatus(state)
	trace.Decision = models.DecisionKind(decision)
	trace.Strategy = models.Strategy(strategy)
	trace.StopReason = stopReason.String
	t, err := parseTime(createdAt)
	if err != nil {
		return models.PlannerTrace{}, err
	}
	trace.CreatedAt = t
	return trace, nil
}
