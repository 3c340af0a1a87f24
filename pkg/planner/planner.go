// Package planner drives one query session through the research loop as a
// state machine: INIT → RESEARCH → VERIFY → SYNTHESIZE → DONE, with RETRY
// cycling back to RESEARCH under a fresh strategy and exhaustion landing in
// FAILED. The planner persists every transition, so the session row and the
// audit tables always reflect how far a run got.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/store"
)

const (
	defaultMaxAttempts = 3
	initialNumDocs     = 5
	maxNumDocs         = 20
	noProgressLimit    = 3
	cacheTTL           = 24 * time.Hour
)

// Terminal strings for the FAILED path. The reason strings are user-safe and
// end up in final_confidence_reason; nothing from the pipeline's internals
// may leak into them.
const (
	failedAnswer       = "The system could not confidently answer the question."
	failedReason       = "Planner stopped after repeated unsuccessful attempts."
	defaultExhausted   = "Planner terminated execution safely."
	defaultFailedNotes = "Planner stopped safely."

	reasonMaxAttempts = "Maximum retry attempts reached."
	reasonNoProgress  = "No progress across multiple attempts."
	reasonNoResult    = "No research result available to synthesize."
)

// ResearchRunner produces one research attempt for a query. It never fails;
// degraded attempts come back as LOW-confidence results.
type ResearchRunner interface {
	Run(ctx context.Context, query string, numDocs int) models.ResearchResult
}

// DecisionMaker judges one attempt's verified evidence. attempt is 1-based.
type DecisionMaker interface {
	Decide(claims []models.VerifiedClaim, confidence models.ConfidenceLevel, attempt, maxAttempts int) models.Decision
}

// Planner is a stateless service value; all per-run state lives in the
// runContext created by Run, so one Planner may drive many sessions
// concurrently.
type Planner struct {
	research    ResearchRunner
	decider     DecisionMaker
	store       *store.Store
	logger      *slog.Logger
	maxAttempts int
}

// Option adjusts a Planner at construction.
type Option func(*Planner)

// WithMaxAttempts overrides the retry budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(p *Planner) {
		if n >= 1 {
			p.maxAttempts = n
		}
	}
}

// New wires a planner over the research pipeline, the decision policy, and
// the store. A nil logger selects the default.
func New(research ResearchRunner, decider DecisionMaker, st *store.Store, logger *slog.Logger, opts ...Option) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Planner{
		research:    research,
		decider:     decider,
		store:       st,
		logger:      logger.With("component", "planner"),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runContext is the mutable state of one planner run.
type runContext struct {
	sessionID string
	question  string

	state    models.SessionStatus
	attempt  int
	numDocs  int
	strategy models.Strategy
	used     map[models.Strategy]bool

	lastConfidence models.ConfidenceLevel
	lastDecision   models.DecisionKind
	noProgress     int

	result          *models.ResearchResult
	queryHash       string
	exhaustedReason string
}

// recordProgress tracks result churn: repeating the exact same
// (confidence, decision) pair counts as no progress.
func (rc *runContext) recordProgress(level models.ConfidenceLevel, kind models.DecisionKind) {
	if level == rc.lastConfidence && kind == rc.lastDecision {
		rc.noProgress++
	} else {
		rc.noProgress = 0
	}
	rc.lastConfidence = level
	rc.lastDecision = kind
}

// rotateStrategy adopts the next search strategy, preferring one matched to
// the scorer's reason, falling back to the first unused in canonical order.
// It reports false when every strategy has been tried.
func (rc *runContext) rotateStrategy(confidenceReason, recommendation string) bool {
	reason := strings.ToLower(confidenceReason)
	var preferred models.Strategy
	switch {
	case strings.Contains(reason, "single source"):
		preferred = models.StrategyBroadenQuery
	case strings.Contains(reason, "conflict"):
		preferred = models.StrategyAuthoritativeSites
	case recommendation != "":
		preferred = models.StrategyResearchFocused
	default:
		preferred = models.StrategyBroadenQuery
	}

	if !rc.used[preferred] {
		rc.adopt(preferred)
		return true
	}
	for _, s := range models.StrategyOrder {
		if !rc.used[s] {
			rc.adopt(s)
			return true
		}
	}
	return false
}

func (rc *runContext) adopt(s models.Strategy) {
	rc.used[s] = true
	rc.strategy = s
}

// Run drives sessionID to a terminal state and returns the final research
// result. A returned error means a store write failed mid-run and the
// session may be left non-terminal; the caller owns marking it FAILED. A
// FAILED outcome reached by the planner itself is not an error: it returns
// the standard failure record with nil error.
func (p *Planner) Run(ctx context.Context, sessionID, question string) (models.ResearchResult, error) {
	rc := &runContext{
		sessionID: sessionID,
		question:  question,
		state:     models.StatusInit,
		numDocs:   initialNumDocs,
		used:      make(map[models.Strategy]bool),
	}

	for {
		var err error
		switch rc.state {
		case models.StatusInit:
			err = p.handleInit(ctx, rc)
		case models.StatusResearch:
			err = p.handleResearch(ctx, rc)
		case models.StatusVerify:
			err = p.handleVerify(ctx, rc)
		case models.StatusSynthesize:
			err = p.handleSynthesize(ctx, rc)
		case models.StatusDone:
			return *rc.result, nil
		case models.StatusFailed:
			return p.fail(ctx, rc)
		}
		if err != nil {
			return models.ResearchResult{}, err
		}
	}
}

// handleInit reuses the session created at submit, or creates one when the
// planner runs standalone.
func (p *Planner) handleInit(ctx context.Context, rc *runContext) error {
	if rc.sessionID == "" {
		session, err := p.store.CreateSession(ctx, rc.question)
		if err != nil {
			return fmt.Errorf("planner: create session: %w", err)
		}
		rc.sessionID = session.ID
	}
	rc.attempt = 1
	rc.strategy = models.StrategyBase
	p.logger.Info("Planner run starting", "session_id", rc.sessionID)
	return p.transition(ctx, rc, models.StatusResearch)
}

// handleResearch serves a retry from cache when possible, otherwise invokes
// the research pipeline and logs the search.
func (p *Planner) handleResearch(ctx context.Context, rc *runContext) error {
	rc.queryHash = Fingerprint(rc.question, rc.strategy, rc.numDocs)

	// First attempt always researches fresh; only retries consult the cache.
	if rc.attempt > 1 {
		hit, err := p.loadCached(ctx, rc)
		if err != nil {
			return err
		}
		if hit {
			return p.transition(ctx, rc, models.StatusVerify)
		}
	}

	queryUsed := ModifyQuery(rc.question, rc.strategy)
	result := p.research.Run(ctx, queryUsed, rc.numDocs)
	rc.result = &result

	err := p.store.InsertSearchLog(ctx, models.SearchLog{
		SessionID:     rc.sessionID,
		AttemptNumber: rc.attempt,
		QueryUsed:     queryUsed,
		NumDocs:       rc.numDocs,
		Success:       result.DocumentCount > 0,
	})
	if err != nil {
		return fmt.Errorf("planner: insert search log: %w", err)
	}
	return p.transition(ctx, rc, models.StatusVerify)
}

// loadCached rebuilds the research result from a previously accepted
// session when a live cache entry matches the current fingerprint. Dangling
// references (cached session gone, snapshot missing) fall through to fresh
// research rather than failing the run.
func (p *Planner) loadCached(ctx context.Context, rc *runContext) (bool, error) {
	entry, err := p.store.GetCacheEntry(ctx, rc.queryHash, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("planner: cache lookup: %w", err)
	}

	snapshot, err := p.store.LatestAnswerSnapshot(ctx, entry.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("planner: load cached answer: %w", err)
	}

	rows, err := p.store.ListEvidence(ctx, entry.SessionID)
	if err != nil {
		return false, fmt.Errorf("planner: load cached evidence: %w", err)
	}
	evidence := make([]models.VerifiedClaim, 0, len(rows))
	for _, row := range rows {
		evidence = append(evidence, models.VerifiedClaim{
			Claim:   row.ClaimText,
			Status:  row.VerificationStatus,
			Sources: row.SourceURLs,
		})
	}

	rc.result = &models.ResearchResult{
		Answer:           snapshot.AnswerText,
		ConfidenceLevel:  snapshot.ConfidenceLevel,
		ConfidenceReason: snapshot.ConfidenceReason,
		Evidence:         evidence,
		Notes:            snapshot.Notes,
	}
	p.logger.Info("Serving retry from cache",
		"session_id", rc.sessionID, "cached_session", entry.SessionID, "attempt", rc.attempt)
	return true, nil
}

// handleVerify evaluates the decision policy over the current result, writes
// the audit trace, and branches on the decision.
func (p *Planner) handleVerify(ctx context.Context, rc *runContext) error {
	level := rc.result.ConfidenceLevel
	decision := p.decider.Decide(rc.result.Evidence, level, rc.attempt, p.maxAttempts)

	err := p.store.InsertPlannerTrace(ctx, models.PlannerTrace{
		SessionID:     rc.sessionID,
		AttemptNumber: rc.attempt,
		PlannerState:  models.StatusVerify,
		Decision:      decision.Kind,
		Strategy:      rc.strategy,
		NumDocs:       rc.numDocs,
		StopReason:    decision.Reason,
	})
	if err != nil {
		return fmt.Errorf("planner: insert planner trace: %w", err)
	}

	rc.recordProgress(level, decision.Kind)
	p.logger.Info("Verification decision",
		"session_id", rc.sessionID, "attempt", rc.attempt,
		"decision", decision.Kind, "confidence", level)

	switch decision.Kind {
	case models.DecisionAccept:
		return p.transition(ctx, rc, models.StatusSynthesize)

	case models.DecisionStop:
		// The stop reason travels to the caller as result notes.
		rc.result.Notes = decision.Reason
		return p.transition(ctx, rc, models.StatusSynthesize)

	default: // RETRY
		// Stop-checks run before the increment so attempt reflects
		// attempts actually executed.
		if rc.attempt >= p.maxAttempts {
			rc.exhaustedReason = reasonMaxAttempts
			rc.state = models.StatusFailed
			return nil
		}
		if rc.noProgress >= noProgressLimit {
			rc.exhaustedReason = reasonNoProgress
			rc.state = models.StatusFailed
			return nil
		}

		rc.attempt++
		if rc.numDocs < maxNumDocs {
			rc.numDocs = min(rc.numDocs*2, maxNumDocs)
		}
		if !rc.rotateStrategy(rc.result.ConfidenceReason, decision.Recommendation) {
			rc.state = models.StatusFailed
			return nil
		}
		return p.transition(ctx, rc, models.StatusResearch)
	}
}

// handleSynthesize persists the final answer, evidence, and terminal DONE
// status, and caches the fingerprint when the result was accepted.
func (p *Planner) handleSynthesize(ctx context.Context, rc *runContext) error {
	if rc.result == nil {
		rc.exhaustedReason = reasonNoResult
		rc.state = models.StatusFailed
		return nil
	}

	err := p.store.InsertAnswerSnapshot(ctx, models.AnswerSnapshot{
		SessionID:        rc.sessionID,
		AnswerText:       rc.result.Answer,
		ConfidenceLevel:  rc.result.ConfidenceLevel,
		ConfidenceReason: rc.result.ConfidenceReason,
		Notes:            rc.result.Notes,
	})
	if err != nil {
		return fmt.Errorf("planner: insert answer snapshot: %w", err)
	}

	if len(rc.result.Evidence) > 0 {
		if err := p.store.SaveEvidence(ctx, rc.sessionID, rc.result.Evidence); err != nil {
			return fmt.Errorf("planner: save evidence: %w", err)
		}
	}

	err = p.store.FinalizeSession(ctx, rc.sessionID, models.StatusDone,
		rc.result.ConfidenceLevel, rc.result.ConfidenceReason)
	if err != nil {
		return fmt.Errorf("planner: finalize session: %w", err)
	}

	// Only accepted results are worth replaying; STOP outcomes never cache.
	if rc.lastDecision == models.DecisionAccept && rc.queryHash != "" {
		expiresAt := time.Now().UTC().Add(cacheTTL)
		if err := p.store.UpsertCacheEntry(ctx, rc.queryHash, rc.sessionID, expiresAt); err != nil {
			return fmt.Errorf("planner: upsert cache entry: %w", err)
		}
	}

	p.logger.Info("Session complete",
		"session_id", rc.sessionID, "attempt", rc.attempt,
		"confidence", rc.result.ConfidenceLevel)
	rc.state = models.StatusDone
	return nil
}

// fail finalizes a FAILED session, keeping whatever partial evidence the
// last research attempt produced, and returns the standard failure record.
func (p *Planner) fail(ctx context.Context, rc *runContext) (models.ResearchResult, error) {
	var evidence []models.VerifiedClaim
	if rc.result != nil {
		evidence = rc.result.Evidence
	}
	if len(evidence) > 0 {
		if err := p.store.SaveEvidence(ctx, rc.sessionID, evidence); err != nil {
			return models.ResearchResult{}, fmt.Errorf("planner: save partial evidence: %w", err)
		}
	}

	finalReason := rc.exhaustedReason
	if finalReason == "" {
		finalReason = defaultExhausted
	}
	err := p.store.FinalizeSession(ctx, rc.sessionID, models.StatusFailed, models.ConfidenceLow, finalReason)
	if err != nil {
		return models.ResearchResult{}, fmt.Errorf("planner: finalize session: %w", err)
	}

	notes := rc.exhaustedReason
	if notes == "" {
		notes = defaultFailedNotes
	}
	p.logger.Warn("Planner gave up",
		"session_id", rc.sessionID, "attempt", rc.attempt, "reason", finalReason)
	return models.ResearchResult{
		Answer:           failedAnswer,
		ConfidenceLevel:  models.ConfidenceLow,
		ConfidenceReason: failedReason,
		Evidence:         evidence,
		Notes:            notes,
	}, nil
}

// transition moves the run to the next state and persists it so external
// status reads track the machine.
func (p *Planner) transition(ctx context.Context, rc *runContext, next models.SessionStatus) error {
	rc.state = next
	if err := p.store.UpdateSessionStatus(ctx, rc.sessionID, next); err != nil {
		return fmt.Errorf("planner: update status to %s: %w", next, err)
	}
	return nil
}
