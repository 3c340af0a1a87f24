package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/veriq-io/veriq/pkg/config"
	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/store"
)

// failedExecutionReason is recorded when execution errors or panics. It is
// fixed and user-safe: nothing from the underlying fault may appear in it.
const failedExecutionReason = "Planner execution failed: internal error"

// Worker is a single queue worker that polls for and processes sessions.
type Worker struct {
	id       string
	store    *store.Store
	config   *config.QueueConfig
	executor SessionExecutor
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a new queue worker. id must be unique per pod and embed
// the pod prefix so startup cleanup can find this worker's claims.
func NewWorker(id string, st *store.Store, cfg *config.QueueConfig, executor SessionExecutor) *Worker {
	return &Worker{
		id:       id,
		store:    st,
		config:   cfg,
		executor: executor,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the in-flight session to
// finish. It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoSessionsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing session", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the oldest pending session and executes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	session, err := w.store.ClaimNextPending(ctx, w.id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoSessionsAvailable
	}
	if err != nil {
		return fmt.Errorf("claiming session: %w", err)
	}

	log := slog.With("session_id", session.ID, "worker_id", w.id)
	log.Info("Session claimed")

	// Session context with timeout so a wedged pipeline cannot hold the
	// worker forever.
	sessionCtx, cancel := context.WithTimeout(ctx, w.config.SessionTimeout)
	defer cancel()

	if err := w.executeSession(sessionCtx, session); err != nil {
		log.Error("Session execution failed", "error", err)
		w.markFailed(session.ID)
		return nil
	}

	log.Info("Session processing complete")
	return nil
}

// executeSession isolates executor panics so one poisoned session cannot
// take down the worker.
func (w *Worker) executeSession(ctx context.Context, session models.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return w.executor.Execute(ctx, session)
}

// markFailed finalizes a stuck session best-effort. Uses a background
// context because the session context may already be cancelled; the store's
// terminal freeze keeps this from clobbering a session the executor managed
// to finish.
func (w *Worker) markFailed(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := w.store.FinalizeSession(ctx, sessionID, models.StatusFailed, models.ConfidenceLow, failedExecutionReason)
	if err != nil {
		slog.Error("Failed to mark session FAILED",
			"session_id", sessionID, "worker_id", w.id, "error", err)
	}
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}
