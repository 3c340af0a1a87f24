// Veriq server: answers natural-language questions with multi-source
// verified evidence. Serves the HTTP API and runs the background planner
// workers that drive submitted questions through research, verification,
// and synthesis.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/veriq-io/veriq/pkg/api"
	"github.com/veriq-io/veriq/pkg/cleanup"
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
	"github.com/veriq-io/veriq/pkg/version"
	"github.com/veriq-io/veriq/pkg/web"
)

// resolvePodID determines the pod identifier for multi-replica coordination.
// Priority: POD_ID env > HOSTNAME env > "local"
func resolvePodID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

func main() {
	// Load .env when present; deployments set real environment variables.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	settings, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: settings.LogLevel}))
	slog.SetDefault(logger)

	podID := resolvePodID()
	slog.Info("Starting veriq",
		"version", version.Full(),
		"http_addr", settings.HTTPAddr,
		"pod_id", podID)

	ctx := context.Background()

	// 1. Open the database and apply migrations
	dbClient, err := database.Open(ctx, settings.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database", "error", err)
		}
	}()
	slog.Info("Database ready", "dialect", dbClient.Dialect())

	st := store.New(dbClient.DB(), logger)

	// 2. One-time startup orphan cleanup
	if err := queue.CleanupStartupOrphans(ctx, st, podID); err != nil {
		slog.Error("Failed to cleanup startup orphans", "error", err)
		// Non-fatal; continue
	}

	// 3. Wire the research pipeline: oracle, search, verification, synthesis
	oracle := llm.NewGeminiClient(settings.GeminiEndpoint, settings.GeminiAPIKey)
	searchClient := web.NewGoogleSearchClient(settings.GoogleSearchEndpoint, settings.GoogleSearchAPIKey, settings.GoogleSearchCX)
	env := web.NewEnvironment(searchClient, web.NewFetcher(), logger)

	extractor := verify.NewClaimExtractor(oracle, logger)
	verifier := verify.NewEngine(verify.NewMatcher(oracle, logger), logger)
	synthesizer := synthesis.New(oracle, logger)
	researchAgent := research.New(env, extractor, verifier, synthesizer, logger)

	plan := planner.New(researchAgent, verify.NewAgent(), st, logger)
	slog.Info("Pipeline initialized")

	// 4. Background retention sweeps
	retention := cleanup.NewService(settings.Retention, st)
	retention.Start(ctx)

	// 5. Start the worker pool before the HTTP server so a backlog left by a
	// previous run starts draining immediately
	workerPool := queue.NewWorkerPool(podID, st, settings.Queue, queue.NewPlannerExecutor(plan))
	if err := workerPool.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	// 6. Start HTTP server (non-blocking)
	queryService := services.NewQueryService(st, logger)
	httpServer := api.NewServer(queryService, settings.InternalTraceToken, logger)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", settings.HTTPAddr)
		if err := httpServer.Start(settings.HTTPAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Veriq started successfully",
		"pod_id", podID,
		"workers", settings.Queue.WorkerCount)

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown: retention first, then workers so in-flight
	// sessions finish, then the HTTP listener
	retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, settings.Queue.GracefulShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded; incomplete sessions will be orphan-recovered")
	}

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
