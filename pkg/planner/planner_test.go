package planner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-io/veriq/pkg/database"
	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/store"
	"github.com/veriq-io/veriq/pkg/verify"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	client, err := database.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "planner_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return store.New(client.DB(), testLogger())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedRunner replays a fixed sequence of research results and records
// every invocation. Once the script runs out the last result repeats.
type scriptedRunner struct {
	mu      sync.Mutex
	results []models.ResearchResult
	queries []string
	numDocs []int
}

func (r *scriptedRunner) Run(_ context.Context, query string, numDocs int) models.ResearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := len(r.queries)
	r.queries = append(r.queries, query)
	r.numDocs = append(r.numDocs, numDocs)
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i]
}

func (r *scriptedRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

// retryForever always asks for another attempt, so tests can exercise the
// planner's own exhaustion checks instead of the decision policy's.
type retryForever struct{}

func (retryForever) Decide([]models.VerifiedClaim, models.ConfidenceLevel, int, int) models.Decision {
	return models.Retry("scripted retry", "")
}

func resultHigh(answer string) models.ResearchResult {
	return models.ResearchResult{
		Answer:           answer,
		ConfidenceLevel:  models.ConfidenceHigh,
		ConfidenceReason: "Strong agreement: 1/1 claims corroborated by multiple independent sources (2 total).",
		Evidence: []models.VerifiedClaim{{
			Claim:   "The capital of France is Paris.",
			Status:  models.StatusAgreement,
			Sources: []string{"https://a.example/paris", "https://b.example/paris"},
		}},
		DocumentCount: 2,
	}
}

func resultSingleSource() models.ResearchResult {
	return models.ResearchResult{
		Answer:           "Possibly Paris, based on one source.",
		ConfidenceLevel:  models.ConfidenceLow,
		ConfidenceReason: "All 1 claim(s) from single sources only (no corroboration).",
		Evidence: []models.VerifiedClaim{{
			Claim:   "The capital of France is Paris.",
			Status:  models.StatusSingleSource,
			Sources: []string{"https://a.example/paris"},
		}},
		DocumentCount: 1,
	}
}

func resultConflict() models.ResearchResult {
	return models.ResearchResult{
		Answer:           "Sources disagree about the capital.",
		ConfidenceLevel:  models.ConfidenceLow,
		ConfidenceReason: "Conflicting information detected in 1 claim(s).",
		Evidence: []models.VerifiedClaim{{
			Claim:   "The capital of France is Paris.",
			Status:  models.StatusConflict,
			Sources: []string{"https://a.example/paris", "https://c.example/lyon"},
		}},
		DocumentCount: 2,
	}
}

func resultMedium() models.ResearchResult {
	return models.ResearchResult{
		Answer:           "Paris, with partial corroboration.",
		ConfidenceLevel:  models.ConfidenceMedium,
		ConfidenceReason: "Partial corroboration: 1/2 claims agreed upon.",
		Evidence: []models.VerifiedClaim{
			{
				Claim:   "The capital of France is Paris.",
				Status:  models.StatusAgreement,
				Sources: []string{"https://a.example/paris", "https://b.example/paris"},
			},
			{
				Claim:   "Paris hosts the national assembly of France.",
				Status:  models.StatusSingleSource,
				Sources: []string{"https://a.example/paris"},
			},
		},
		DocumentCount: 2,
	}
}

func mustSession(t *testing.T, st *store.Store, id string) models.Session {
	t.Helper()
	session, err := st.GetSession(context.Background(), id)
	require.NoError(t, err)
	return session
}

func mustTraces(t *testing.T, st *store.Store, sessionID string) []models.PlannerTrace {
	t.Helper()
	traces, err := st.ListPlannerTraces(context.Background(), sessionID)
	require.NoError(t, err)
	return traces
}

func mustLogs(t *testing.T, st *store.Store, sessionID string) []models.SearchLog {
	t.Helper()
	logs, err := st.ListSearchLogs(context.Background(), sessionID)
	require.NoError(t, err)
	return logs
}

func mustEvidence(t *testing.T, st *store.Store, sessionID string) []models.Evidence {
	t.Helper()
	evidence, err := st.ListEvidence(context.Background(), sessionID)
	require.NoError(t, err)
	return evidence
}

func TestRunAcceptsOnFirstAttempt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "What is the capital of France?")
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{resultHigh("Paris is the capital of France.")}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", result.Answer)
	assert.Equal(t, models.ConfidenceHigh, result.ConfidenceLevel)
	assert.Empty(t, result.Notes)

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, string(models.ConfidenceHigh), got.FinalConfidenceLevel)

	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 1)
	assert.Equal(t, 1, traces[0].AttemptNumber)
	assert.Equal(t, models.StatusVerify, traces[0].PlannerState)
	assert.Equal(t, models.DecisionAccept, traces[0].Decision)
	assert.Equal(t, models.StrategyBase, traces[0].Strategy)
	assert.Equal(t, 5, traces[0].NumDocs)

	logs := mustLogs(t, st, session.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, session.Question, logs[0].QueryUsed)
	assert.Equal(t, 5, logs[0].NumDocs)
	assert.True(t, logs[0].Success)

	evidence := mustEvidence(t, st, session.ID)
	require.Len(t, evidence, 1)
	assert.Equal(t, "The capital of France is Paris.", evidence[0].ClaimText)
	assert.Equal(t, models.StatusAgreement, evidence[0].VerificationStatus)
	assert.Equal(t, []string{"https://a.example/paris", "https://b.example/paris"}, evidence[0].SourceURLs)

	snapshot, err := st.LatestAnswerSnapshot(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", snapshot.AnswerText)

	// ACCEPT caches the fingerprint with a day of life.
	entry, err := st.GetCacheEntry(ctx, Fingerprint(session.Question, models.StrategyBase, 5), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, session.ID, entry.SessionID)
	ttl := time.Until(entry.ExpiresAt)
	assert.Greater(t, ttl, 23*time.Hour)
	assert.Less(t, ttl, 25*time.Hour)
}

func TestRunRetriesThenAccepts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "What is the capital of France?")
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{
		resultSingleSource(),
		resultHigh("Paris is the capital of France."),
	}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceHigh, result.ConfidenceLevel)

	require.Equal(t, 2, runner.calls())
	assert.Equal(t, session.Question, runner.queries[0])
	assert.Equal(t, session.Question+" explanation overview", runner.queries[1],
		"a single-source reason rotates to BROADEN_QUERY")
	assert.Equal(t, []int{5, 10}, runner.numDocs, "document budget doubles on retry")

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, string(models.ConfidenceHigh), got.FinalConfidenceLevel)

	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 2)
	assert.Equal(t, models.DecisionRetry, traces[0].Decision)
	assert.Equal(t, models.StrategyBase, traces[0].Strategy)
	assert.Equal(t, models.DecisionAccept, traces[1].Decision)
	assert.Equal(t, models.StrategyBroadenQuery, traces[1].Strategy)
	assert.Equal(t, 2, traces[1].AttemptNumber)
	assert.Equal(t, 10, traces[1].NumDocs)

	require.Len(t, mustLogs(t, st, session.ID), 2)

	// Only the accepted attempt's fingerprint lands in the cache.
	_, err = st.GetCacheEntry(ctx, Fingerprint(session.Question, models.StrategyBase, 5), time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrNotFound)
	entry, err := st.GetCacheEntry(ctx, Fingerprint(session.Question, models.StrategyBroadenQuery, 10), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, session.ID, entry.SessionID)
}

func TestRunStopsOnPersistentConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "What is the capital of France?")
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{
		resultConflict(), resultConflict(), resultConflict(),
	}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err)

	// STOP still synthesizes: the session ends DONE with the stop reason
	// carried as notes.
	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, string(models.ConfidenceLow), got.FinalConfidenceLevel)
	assert.Equal(t, "Conflicting evidence persists despite additional verification attempts.", result.Notes)

	snapshot, err := st.LatestAnswerSnapshot(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Notes, snapshot.Notes)

	// Rotation prefers AUTHORITATIVE_SITES for conflict reasons; when it is
	// already spent, the canonical-order fallback re-adopts BASE, which the
	// opening attempt never recorded into the rotation history.
	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 3)
	assert.Equal(t, models.DecisionRetry, traces[0].Decision)
	assert.Equal(t, models.DecisionRetry, traces[1].Decision)
	assert.Equal(t, models.DecisionStop, traces[2].Decision)
	assert.Equal(t,
		[]models.Strategy{models.StrategyBase, models.StrategyAuthoritativeSites, models.StrategyBase},
		[]models.Strategy{traces[0].Strategy, traces[1].Strategy, traces[2].Strategy})
	assert.Equal(t, []int{5, 10, 20}, []int{traces[0].NumDocs, traces[1].NumDocs, traces[2].NumDocs})

	// STOP outcomes never populate the cache.
	for i, trace := range traces {
		_, err := st.GetCacheEntry(ctx, Fingerprint(session.Question, trace.Strategy, trace.NumDocs), time.Now().UTC())
		assert.ErrorIs(t, err, store.ErrNotFound, "attempt %d must not cache", i+1)
	}
}

func TestRunFailsAtAttemptBudget(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "q")
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{resultSingleSource()}}
	p := New(runner, retryForever{}, st, testLogger())

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err, "a FAILED outcome the planner reached itself is not an error")

	assert.Equal(t, "The system could not confidently answer the question.", result.Answer)
	assert.Equal(t, models.ConfidenceLow, result.ConfidenceLevel)
	assert.Equal(t, "Maximum retry attempts reached.", result.Notes)

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "Maximum retry attempts reached.", got.FinalConfidenceReason)

	require.Len(t, mustTraces(t, st, session.ID), 3)
}

func TestRunFailsWhenNoProgress(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "q")
	require.NoError(t, err)

	// Every attempt lands on the identical (confidence, decision) pair, so
	// the churn check fires long before the attempt budget would.
	runner := &scriptedRunner{results: []models.ResearchResult{resultSingleSource()}}
	p := New(runner, retryForever{}, st, testLogger(), WithMaxAttempts(10))

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err)

	assert.Equal(t, "The system could not confidently answer the question.", result.Answer)
	assert.Equal(t, "No progress across multiple attempts.", result.Notes)

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "No progress across multiple attempts.", got.FinalConfidenceReason)

	assert.Equal(t, 4, runner.calls())
	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 4)
	for i, trace := range traces {
		assert.Equal(t, i+1, trace.AttemptNumber, "attempt numbers stay dense")
	}

	// Partial evidence from the last attempt survives the failure.
	evidence := mustEvidence(t, st, session.ID)
	require.Len(t, evidence, 1)
	assert.Equal(t, models.StatusSingleSource, evidence[0].VerificationStatus)
}

func TestRunFailsWhenStrategiesExhausted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "q")
	require.NoError(t, err)

	// Alternating outcomes keep the churn counter at zero; the run ends only
	// when no unused strategy remains. The opening BASE attempt is not part
	// of the rotation history, so the fallback scan re-adopts BASE once
	// before the pool runs dry.
	runner := &scriptedRunner{results: []models.ResearchResult{
		resultSingleSource(), resultMedium(), resultSingleSource(), resultMedium(),
	}}
	p := New(runner, retryForever{}, st, testLogger(), WithMaxAttempts(10))

	result, err := p.Run(ctx, session.ID, session.Question)
	require.NoError(t, err)
	assert.Equal(t, "Planner stopped safely.", result.Notes)

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "Planner terminated execution safely.", got.FinalConfidenceReason)

	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 5, "opening attempt plus one per rotated-into strategy")
	gotStrategies := make([]models.Strategy, 0, len(traces))
	for _, trace := range traces {
		assert.Equal(t, models.DecisionRetry, trace.Decision)
		gotStrategies = append(gotStrategies, trace.Strategy)
	}
	assert.Equal(t, []models.Strategy{
		models.StrategyBase,
		models.StrategyBroadenQuery,
		models.StrategyBase,
		models.StrategyAuthoritativeSites,
		models.StrategyResearchFocused,
	}, gotStrategies)
	assert.Equal(t, 5, runner.calls())
}

func TestRunServesRetryFromCache(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	question := "What is the capital of France?"

	// A previously accepted session with its answer and evidence on file.
	donor, err := st.CreateSession(ctx, question)
	require.NoError(t, err)
	donorResult := resultHigh("Paris is the capital of France.")
	require.NoError(t, st.InsertAnswerSnapshot(ctx, models.AnswerSnapshot{
		SessionID:        donor.ID,
		AnswerText:       donorResult.Answer,
		ConfidenceLevel:  donorResult.ConfidenceLevel,
		ConfidenceReason: donorResult.ConfidenceReason,
	}))
	require.NoError(t, st.SaveEvidence(ctx, donor.ID, donorResult.Evidence))
	require.NoError(t, st.FinalizeSession(ctx, donor.ID, models.StatusDone, models.ConfidenceHigh, donorResult.ConfidenceReason))

	// The fingerprint the new run will compute on its second attempt:
	// BROADEN_QUERY after a single-source first pass, with a doubled budget.
	hash := Fingerprint(question, models.StrategyBroadenQuery, 10)
	require.NoError(t, st.UpsertCacheEntry(ctx, hash, donor.ID, time.Now().UTC().Add(time.Hour)))

	session, err := st.CreateSession(ctx, question)
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{resultSingleSource()}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	result, err := p.Run(ctx, session.ID, question)
	require.NoError(t, err)

	assert.Equal(t, 1, runner.calls(), "the retry must come from cache, not fresh research")
	assert.Equal(t, "Paris is the capital of France.", result.Answer)
	assert.Equal(t, models.ConfidenceHigh, result.ConfidenceLevel)

	got := mustSession(t, st, session.ID)
	assert.Equal(t, models.StatusDone, got.Status)

	traces := mustTraces(t, st, session.ID)
	require.Len(t, traces, 2)
	assert.Equal(t, models.DecisionRetry, traces[0].Decision)
	assert.Equal(t, models.DecisionAccept, traces[1].Decision)
	assert.Equal(t, models.StrategyBroadenQuery, traces[1].Strategy)

	// Only the fresh attempt reached the search layer.
	logs := mustLogs(t, st, session.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].AttemptNumber)

	// Cached evidence is copied onto the new session.
	evidence := mustEvidence(t, st, session.ID)
	require.Len(t, evidence, 1)
	assert.Equal(t, models.StatusAgreement, evidence[0].VerificationStatus)

	// Accepting refreshes the entry to point at the newest session.
	entry, err := st.GetCacheEntry(ctx, hash, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, session.ID, entry.SessionID)
}

func TestRunIgnoresDanglingCacheEntry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	question := "What is the capital of France?"

	// The entry points at a session that never produced a snapshot.
	donor, err := st.CreateSession(ctx, question)
	require.NoError(t, err)
	hash := Fingerprint(question, models.StrategyBroadenQuery, 10)
	require.NoError(t, st.UpsertCacheEntry(ctx, hash, donor.ID, time.Now().UTC().Add(time.Hour)))

	session, err := st.CreateSession(ctx, question)
	require.NoError(t, err)

	runner := &scriptedRunner{results: []models.ResearchResult{
		resultSingleSource(),
		resultHigh("Paris is the capital of France."),
	}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	result, err := p.Run(ctx, session.ID, question)
	require.NoError(t, err)

	assert.Equal(t, 2, runner.calls(), "a dangling cache entry falls through to fresh research")
	assert.Equal(t, models.ConfidenceHigh, result.ConfidenceLevel)
	assert.Equal(t, models.StatusDone, mustSession(t, st, session.ID).Status)
	require.Len(t, mustLogs(t, st, session.ID), 2)
}

func TestRunCreatesSessionWhenMissing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	runner := &scriptedRunner{results: []models.ResearchResult{resultHigh("An answer.")}}
	p := New(runner, verify.NewAgent(), st, testLogger())

	_, err := p.Run(ctx, "", "ad hoc question")
	require.NoError(t, err)

	entry, err := st.GetCacheEntry(ctx, Fingerprint("ad hoc question", models.StrategyBase, 5), time.Now().UTC())
	require.NoError(t, err)
	got := mustSession(t, st, entry.SessionID)
	assert.Equal(t, "ad hoc question", got.Question)
	assert.Equal(t, models.StatusDone, got.Status)
}
