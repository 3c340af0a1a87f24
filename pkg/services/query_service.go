// Package services sits between the HTTP surface and the store: request
// validation, error classification, and assembling the read models for
// results and traces. Pipeline execution is not here; workers pick sessions
// up from the database on their own.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/store"
)

// QueryResult is the external projection of a terminal session: the answer,
// its confidence grade, and the verbatim evidence. Notes carries the stop
// reason or degradation warning when one exists.
type QueryResult struct {
	Answer           string            `json:"answer"`
	ConfidenceLevel  string            `json:"confidence_level"`
	ConfidenceReason string            `json:"confidence_reason"`
	Evidence         []models.Evidence `json:"evidence"`
	Notes            string            `json:"notes,omitempty"`
}

// QueryTrace is the audit view of a session: planner decisions and search
// metadata only. Prompt text and oracle output are never part of it.
type QueryTrace struct {
	PlannerTraces []models.PlannerTrace `json:"planner_traces"`
	SearchLogs    []models.SearchLog    `json:"search_logs"`
}

// QueryService handles the submit, status, result, and trace operations.
type QueryService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewQueryService creates the query service over the store.
func NewQueryService(st *store.Store, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{store: st, logger: logger.With("component", "query_service")}
}

// Submit validates the question and creates the session row the worker pool
// will pick up. The question is stored verbatim, hostile shapes included;
// only an empty or whitespace-only question is rejected.
func (s *QueryService) Submit(ctx context.Context, question string) (models.Session, error) {
	if strings.TrimSpace(question) == "" {
		return models.Session{}, NewValidationError("question", "must not be empty")
	}

	session, err := s.store.CreateSession(ctx, question)
	if err != nil {
		s.logger.Error("Failed to create session", "error", err)
		return models.Session{}, fmt.Errorf("%w: create session: %v", ErrUnavailable, err)
	}
	return session, nil
}

// Status returns the session's current lifecycle state, exactly as stored.
func (s *QueryService) Status(ctx context.Context, id string) (models.SessionStatus, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return "", err
	}
	return session.Status, nil
}

// Result assembles the result view for a terminal session. Non-terminal
// sessions return ErrNotReady. Reads are pure: a FAILED session yields the
// failure record and partial evidence, never a re-run.
func (s *QueryService) Result(ctx context.Context, id string) (QueryResult, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return QueryResult{}, err
	}
	if !session.Status.IsTerminal() {
		return QueryResult{}, ErrNotReady
	}

	snapshot, err := s.store.LatestAnswerSnapshot(ctx, session.ID)
	haveSnapshot := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("Failed to load answer snapshot", "session_id", session.ID, "error", err)
		return QueryResult{}, fmt.Errorf("%w: load answer: %v", ErrUnavailable, err)
	}

	evidence, err := s.store.ListEvidence(ctx, session.ID)
	if err != nil {
		s.logger.Error("Failed to load evidence", "session_id", session.ID, "error", err)
		return QueryResult{}, fmt.Errorf("%w: load evidence: %v", ErrUnavailable, err)
	}
	if evidence == nil {
		evidence = []models.Evidence{}
	}

	result := QueryResult{Evidence: evidence}
	if haveSnapshot {
		result.Answer = snapshot.AnswerText
		result.ConfidenceLevel = string(snapshot.ConfidenceLevel)
		result.ConfidenceReason = snapshot.ConfidenceReason
		result.Notes = snapshot.Notes
	} else {
		// FAILED before any synthesis: surface the session's final fields
		// with an empty answer.
		result.ConfidenceLevel = session.FinalConfidenceLevel
		if result.ConfidenceLevel == "" {
			result.ConfidenceLevel = string(models.ConfidenceLow)
		}
		result.ConfidenceReason = session.FinalConfidenceReason
	}
	if result.Notes == "" && session.Status == models.StatusFailed {
		result.Notes = session.FinalConfidenceReason
	}
	return result, nil
}

// Trace returns the audit rows for a session. Access control belongs to the
// HTTP layer; the service only checks the session exists.
func (s *QueryService) Trace(ctx context.Context, id string) (QueryTrace, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return QueryTrace{}, err
	}

	traces, err := s.store.ListPlannerTraces(ctx, session.ID)
	if err != nil {
		s.logger.Error("Failed to load planner traces", "session_id", session.ID, "error", err)
		return QueryTrace{}, fmt.Errorf("%w: load traces: %v", ErrUnavailable, err)
	}
	if traces == nil {
		traces = []models.PlannerTrace{}
	}

	logs, err := s.store.ListSearchLogs(ctx, session.ID)
	if err != nil {
		s.logger.Error("Failed to load search logs", "session_id", session.ID, "error", err)
		return QueryTrace{}, fmt.Errorf("%w: load search logs: %v", ErrUnavailable, err)
	}
	if logs == nil {
		logs = []models.SearchLog{}
	}

	return QueryTrace{PlannerTraces: traces, SearchLogs: logs}, nil
}

// getSession resolves an external ID string to a session. Malformed IDs are
// reported distinctly from unknown ones so the API can mirror that split.
func (s *QueryService) getSession(ctx context.Context, id string) (models.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Session{}, ErrInvalidSessionID
	}

	session, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to load session", "session_id", id, "error", err)
		return models.Session{}, fmt.Errorf("%w: get session: %v", ErrUnavailable, err)
	}
	return session, nil
}
