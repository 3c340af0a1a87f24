// Package cleanup provides data retention sweeps.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/veriq-io/veriq/pkg/config"
	"github.com/veriq-io/veriq/pkg/store"
)

// Service periodically enforces retention policies:
//   - Deletes DONE and FAILED sessions older than the retention window,
//     together with their audit trail
//   - Removes query cache entries past their expiry
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention service.
func NewService(cfg *config.RetentionConfig, st *store.Store) *Service {
	return &Service{config: cfg, store: st}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention service started",
		"session_retention", s.config.SessionRetention,
		"interval", s.config.CleanupInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.deleteOldSessions(ctx)
	s.deleteExpiredCacheEntries(ctx)
}

// deleteOldSessions removes terminal sessions past the retention window.
// In-flight sessions are exempt regardless of age; orphan detection owns
// those.
func (s *Service) deleteOldSessions(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.config.SessionRetention)
	count, err := s.store.DeleteTerminalSessionsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: session deletion failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted old sessions", "count", count)
	}
}

func (s *Service) deleteExpiredCacheEntries(ctx context.Context) {
	count, err := s.store.DeleteExpiredCacheEntries(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("Retention: cache cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: removed expired cache entries", "count", count)
	}
}
