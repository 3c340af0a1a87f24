// Package e2e boots a complete veriq instance against scripted upstream
// mocks and exercises it end to end through the public HTTP API.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veriq-io/veriq/pkg/api"
	"github.com/veriq-io/veriq/pkg/config"
	"github.com/veriq-io/veriq/pkg/database"
	"github.com/veriq-io/veriq/pkg/llm"
	"github.com/veriq-io/veriq/pkg/planner"
	"github.com/veriq-io/veriq/pkg/queue"
	"github.com/veriq-io/veriq/pkg/research"
	"github.com/veriq-io/veriq/pkg/services"
	"github.com/veriq-io/veriq/pkg/store"
	"github.com/veriq-io/veriq/pkg/synthesis"
	"github.com/veriq-io/veriq/pkg/verify"
	"github.com/veriq-io/veriq/pkg/web"
)

// TestApp is a full veriq instance wired to scripted upstreams: worker pool,
// planner pipeline, and HTTP API over a per-test sqlite database.
type TestApp struct {
	Store  *store.Store
	Oracle *ScriptedOracle
	Search *ScriptedSearch
	Site   *StaticSite
	Pool   *queue.WorkerPool

	BaseURL string

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	workerCount    int
	sessionTimeout time.Duration
	maxAttempts    int
	traceToken     string
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithWorkerCount sets the number of worker pool goroutines. Zero workers
// leave submitted sessions pending, which some scenarios rely on.
func WithWorkerCount(n int) TestAppOption {
	return func(c *testAppConfig) { c.workerCount = n }
}

// WithSessionTimeout sets the per-session execution budget.
func WithSessionTimeout(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.sessionTimeout = d }
}

// WithMaxAttempts overrides the planner's retry budget.
func WithMaxAttempts(n int) TestAppOption {
	return func(c *testAppConfig) { c.maxAttempts = n }
}

// WithTraceToken protects the trace endpoint with the given token.
func WithTraceToken(token string) TestAppOption {
	return func(c *testAppConfig) { c.traceToken = token }
}

// NewTestApp creates and starts a full veriq test instance. Shutdown is
// registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		workerCount:    1,
		sessionTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(tc)
	}

	oracle := NewScriptedOracle(t)
	search := NewScriptedSearch(t)
	site := NewStaticSite(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	dbClient, err := database.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	st := store.New(dbClient.DB(), logger)

	// Pipeline wired exactly as in main, pointed at the mock endpoints. The
	// fetcher backoff is shrunk so retry paths stay fast.
	oracleClient := llm.NewGeminiClient(oracle.Server.URL, "test-key")
	searchClient := web.NewGoogleSearchClient(search.Server.URL, "test-key", "test-cx")
	fetcher := web.NewFetcher()
	fetcher.Backoff = 10 * time.Millisecond
	env := web.NewEnvironment(searchClient, fetcher, logger)

	extractor := verify.NewClaimExtractor(oracleClient, logger)
	verifier := verify.NewEngine(verify.NewMatcher(oracleClient, logger), logger)
	synthesizer := synthesis.New(oracleClient, logger)
	researchAgent := research.New(env, extractor, verifier, synthesizer, logger)

	var plannerOpts []planner.Option
	if tc.maxAttempts > 0 {
		plannerOpts = append(plannerOpts, planner.WithMaxAttempts(tc.maxAttempts))
	}
	plan := planner.New(researchAgent, verify.NewAgent(), st, logger, plannerOpts...)

	queueCfg := config.DefaultQueueConfig()
	queueCfg.WorkerCount = tc.workerCount
	queueCfg.PollInterval = 20 * time.Millisecond
	queueCfg.PollIntervalJitter = 10 * time.Millisecond
	queueCfg.SessionTimeout = tc.sessionTimeout
	queueCfg.GracefulShutdownTimeout = 10 * time.Second
	queueCfg.OrphanDetectionInterval = time.Hour
	queueCfg.OrphanThreshold = time.Hour

	podID := fmt.Sprintf("e2e-%s", t.Name())
	pool := queue.NewWorkerPool(podID, st, queueCfg, queue.NewPlannerExecutor(plan))
	require.NoError(t, pool.Start(ctx))

	server := api.NewServer(services.NewQueryService(st, logger), tc.traceToken, logger)
	httpServer := httptest.NewServer(server.Handler())

	t.Cleanup(func() {
		pool.Stop()
		httpServer.Close()
		_ = dbClient.Close()
	})

	return &TestApp{
		Store:   st,
		Oracle:  oracle,
		Search:  search,
		Site:    site,
		Pool:    pool,
		BaseURL: httpServer.URL,
		t:       t,
	}
}

// SubmitQuestion posts a question and returns the new session ID.
func (app *TestApp) SubmitQuestion(t *testing.T, question string) string {
	t.Helper()
	resp := app.postJSON(t, "/api/query", map[string]string{"question": question}, http.StatusOK)
	sessionID, _ := resp["session_id"].(string)
	require.NotEmpty(t, sessionID, "submit response missing session_id")
	return sessionID
}

// QueryStatus reads the session's planner state through the API.
func (app *TestApp) QueryStatus(t *testing.T, sessionID string) string {
	t.Helper()
	resp := app.getJSON(t, "/api/query/"+sessionID+"/status", http.StatusOK)
	status, _ := resp["status"].(string)
	return status
}

// WaitForStatus polls the status endpoint until the session reaches one of
// the expected states.
func (app *TestApp) WaitForStatus(t *testing.T, sessionID string, expected ...string) string {
	t.Helper()
	var actual string
	require.Eventually(t, func() bool {
		resp, body := app.get(t, "/api/query/"+sessionID+"/status", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var decoded struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false
		}
		actual = decoded.Status
		for _, exp := range expected {
			if actual == exp {
				return true
			}
		}
		return false
	}, 20*time.Second, 25*time.Millisecond,
		"session %s did not reach status %v (last: %s)", sessionID, expected, actual)
	return actual
}

func (app *TestApp) postJSON(t *testing.T, path string, body any, expectedStatus int) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(app.BaseURL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: unexpected status", path)
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func (app *TestApp) getJSON(t *testing.T, path string, expectedStatus int) map[string]any {
	t.Helper()
	resp, body := app.get(t, path, nil)
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: unexpected status (body: %s)", path, body)
	var result map[string]any
	require.NoError(t, json.Unmarshal(body, &result))
	return result
}

// get performs a raw GET and returns the response plus the drained body.
func (app *TestApp) get(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}
