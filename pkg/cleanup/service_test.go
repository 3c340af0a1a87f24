package cleanup

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriq-io/veriq/pkg/config"
	"github.com/veriq-io/veriq/pkg/database"
	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/store"
)

func setupStore(t *testing.T) (*database.Client, *store.Store) {
	t.Helper()
	client, err := database.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "cleanup_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return client, store.New(client.DB(), logger)
}

// ageSession backdates a session's creation timestamp. The column stores
// fixed-width ISO-8601 UTC text.
func ageSession(t *testing.T, client *database.Client, id string, age time.Duration) {
	t.Helper()
	createdAt := time.Now().UTC().Add(-age).Format("2006-01-02T15:04:05.000000Z")
	_, err := client.DB().ExecContext(context.Background(),
		`UPDATE query_sessions SET created_at = $1 WHERE id = $2`, createdAt, id)
	require.NoError(t, err)
}

func countRows(t *testing.T, client *database.Client, table string) int {
	t.Helper()
	var n int
	require.NoError(t, client.DB().QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func retentionConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		SessionRetention: 30 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

func TestServiceDeletesOldTerminalSessions(t *testing.T) {
	client, st := setupStore(t)
	ctx := context.Background()

	old, err := st.CreateSession(ctx, "old completed question")
	require.NoError(t, err)
	require.NoError(t, st.InsertPlannerTrace(ctx, models.PlannerTrace{
		SessionID:     old.ID,
		AttemptNumber: 1,
		PlannerState:  models.StatusVerify,
		Decision:      models.DecisionAccept,
		Strategy:      models.StrategyBase,
		NumDocs:       5,
	}))
	require.NoError(t, st.SaveEvidence(ctx, old.ID, []models.VerifiedClaim{
		{Claim: "old claim", Status: models.StatusAgreement, Sources: []string{"https://a.example", "https://b.example"}},
	}))
	require.NoError(t, st.InsertAnswerSnapshot(ctx, models.AnswerSnapshot{
		SessionID:        old.ID,
		AnswerText:       "old answer",
		ConfidenceLevel:  models.ConfidenceHigh,
		ConfidenceReason: "corroborated",
	}))
	require.NoError(t, st.UpsertCacheEntry(ctx, "old-hash", old.ID, time.Now().UTC().Add(time.Hour)))
	require.NoError(t, st.FinalizeSession(ctx, old.ID, models.StatusDone, models.ConfidenceHigh, "corroborated"))
	ageSession(t, client, old.ID, 40*24*time.Hour)

	recent, err := st.CreateSession(ctx, "recent completed question")
	require.NoError(t, err)
	require.NoError(t, st.FinalizeSession(ctx, recent.ID, models.StatusDone, models.ConfidenceHigh, "corroborated"))

	stalePending, err := st.CreateSession(ctx, "stale pending question")
	require.NoError(t, err)
	ageSession(t, client, stalePending.ID, 40*24*time.Hour)

	svc := NewService(retentionConfig(), st)
	svc.runAll(ctx)

	_, err = st.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "aged-out terminal session should be gone")

	// The audit trail and cache reference cascade away with the session.
	assert.Equal(t, 0, countRows(t, client, "planner_traces"))
	assert.Equal(t, 0, countRows(t, client, "evidence"))
	assert.Equal(t, 0, countRows(t, client, "answer_snapshots"))
	assert.Equal(t, 0, countRows(t, client, "query_cache"))

	_, err = st.GetSession(ctx, recent.ID)
	assert.NoError(t, err, "recent terminal session survives")

	pending, err := st.GetSession(ctx, stalePending.ID)
	require.NoError(t, err, "non-terminal sessions are never deleted, whatever their age")
	assert.Equal(t, models.StatusInit, pending.Status)
}

func TestServiceRemovesExpiredCacheEntries(t *testing.T) {
	client, st := setupStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "cached question")
	require.NoError(t, err)
	require.NoError(t, st.UpsertCacheEntry(ctx, "expired-hash", session.ID, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, st.UpsertCacheEntry(ctx, "live-hash", session.ID, time.Now().UTC().Add(time.Hour)))

	svc := NewService(retentionConfig(), st)
	svc.runAll(ctx)

	assert.Equal(t, 1, countRows(t, client, "query_cache"))
	entry, err := st.GetCacheEntry(ctx, "live-hash", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, session.ID, entry.SessionID)
}

func TestServiceStartStop(t *testing.T) {
	client, st := setupStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, "soon to expire")
	require.NoError(t, err)
	require.NoError(t, st.UpsertCacheEntry(ctx, "expired-hash", session.ID, time.Now().UTC().Add(-time.Minute)))

	svc := NewService(&config.RetentionConfig{
		SessionRetention: 30 * 24 * time.Hour,
		CleanupInterval:  25 * time.Millisecond,
	}, st)

	svc.Start(ctx)
	svc.Start(ctx) // second call is a no-op

	require.Eventually(t, func() bool {
		var n int
		if err := client.DB().QueryRow(`SELECT COUNT(*) FROM query_cache`).Scan(&n); err != nil {
			return false
		}
		return n == 0
	}, 3*time.Second, 10*time.Millisecond, "sweep loop should remove the expired entry")

	svc.Stop()
}
