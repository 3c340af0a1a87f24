package config

import "time"

// QueueConfig contains worker pool configuration.
// These values control how pending sessions are polled, claimed, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica.
	// Each worker independently polls and processes sessions.
	WorkerCount int

	// PollInterval is the base interval for checking pending sessions.
	PollInterval time.Duration

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration

	// SessionTimeout is the maximum time a single session run may take.
	SessionTimeout time.Duration

	// GracefulShutdownTimeout is the max time to wait for active sessions
	// to complete during shutdown.
	GracefulShutdownTimeout time.Duration

	// OrphanDetectionInterval is how often to scan for claimed sessions
	// whose worker died before reaching a terminal state.
	OrphanDetectionInterval time.Duration

	// OrphanThreshold is how long a claimed session may stay non-terminal
	// before it is considered orphaned and failed.
	OrphanThreshold time.Duration
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             4,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		SessionTimeout:          10 * time.Minute,
		GracefulShutdownTimeout: 2 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         15 * time.Minute,
	}
}
