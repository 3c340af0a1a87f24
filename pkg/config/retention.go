package config

import "time"

// RetentionConfig controls how long finished data is kept before the
// background sweeper removes it.
type RetentionConfig struct {
	// SessionRetention is how long DONE and FAILED sessions are kept,
	// together with their audit trail, before deletion.
	SessionRetention time.Duration

	// CleanupInterval is how often the sweeper runs.
	CleanupInterval time.Duration
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SessionRetention: 30 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}
