package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veriq-io/veriq/pkg/config"
	"github.com/veriq-io/veriq/pkg/store"
)

const (
	// startupOrphanReason ends sessions a previous instance of this pod
	// claimed and never finished.
	startupOrphanReason = "Session was interrupted by a service restart before completing."

	// staleOrphanReason ends sessions whose worker stopped making progress,
	// on this pod or any other.
	staleOrphanReason = "Session did not complete within the allowed time."
)

// WorkerPool manages a pool of queue workers plus the periodic orphan scan.
type WorkerPool struct {
	podID    string
	store    *store.Store
	config   *config.QueueConfig
	executor SessionExecutor
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(podID string, st *store.Store, cfg *config.QueueConfig, executor SessionExecutor) *WorkerPool {
	return &WorkerPool{
		podID:    podID,
		store:    st,
		config:   cfg,
		executor: executor,
		workers:  make([]*Worker, 0, cfg.WorkerCount),
		stopCh:   make(chan struct{}),
	}
}

// Start spawns worker goroutines and the orphan detection background task.
// It is safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("Starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := NewWorker(workerID, p.store, p.config, p.executor)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.Info("Worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish. Workers
// complete their current sessions before exiting (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("Worker pool stopped gracefully")
}

// runOrphanDetection periodically fails sessions claimed longer ago than the
// orphan threshold. All pods run this independently; the update is
// idempotent, so overlapping scans are harmless.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-p.config.OrphanThreshold)
			n, err := p.store.FailOrphanedBefore(ctx, cutoff, staleOrphanReason)
			if err != nil {
				slog.Error("Orphan detection failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("Recovered orphaned sessions", "count", n, "pod_id", p.podID)
			}
		}
	}
}

// CleanupStartupOrphans performs a one-time cleanup of sessions claimed by a
// previous instance of this pod that never reached a terminal state. Called
// once during startup, before the worker pool begins processing.
func CleanupStartupOrphans(ctx context.Context, st *store.Store, podID string) error {
	n, err := st.FailClaimedByPod(ctx, podID, startupOrphanReason)
	if err != nil {
		return fmt.Errorf("cleaning up startup orphans: %w", err)
	}
	if n > 0 {
		slog.Warn("Recovered sessions left over from a previous run",
			"pod_id", podID, "count", n)
	}
	return nil
}
