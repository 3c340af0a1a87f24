package models

import "time"

// PlannerTrace is one audit row emitted per VERIFY evaluation. It carries
// decisions and metadata only: prompt text, oracle output, and internal
// reasoning are forbidden from this record.
type PlannerTrace struct {
	ID            string        `json:"-"`
	SessionID     string        `json:"-"`
	AttemptNumber int           `json:"attempt_number"`
	PlannerState  SessionStatus `json:"planner_state"`
	Decision      DecisionKind  `json:"verification_decision"`
	Strategy      Strategy      `json:"strategy_used"`
	NumDocs       int           `json:"num_docs"`
	StopReason    string        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SearchLog is one audit row per search invocation.
type SearchLog struct {
	ID            string    `json:"-"`
	SessionID     string    `json:"-"`
	AttemptNumber int       `json:"attempt_number"`
	QueryUsed     string    `json:"query_used"`
	NumDocs       int       `json:"num_docs"`
	Success       bool      `json:"success"`
	CreatedAt     time.Time `json:"created_at"`
}

// Evidence is the persisted projection of one verified claim. ClaimText and
// SourceURLs are copied verbatim from the verifier's output, never reworded.
// Position preserves the verifier's emission order.
type Evidence struct {
	ID                 string             `json:"-"`
	SessionID          string             `json:"-"`
	ClaimText          string             `json:"claim"`
	VerificationStatus VerificationStatus `json:"status"`
	SourceURLs         []string           `json:"sources"`
	Position           int                `json:"-"`
	CreatedAt          time.Time          `json:"-"`
}

// AnswerSnapshot is one persisted synthesis outcome.
type AnswerSnapshot struct {
	ID               string
	SessionID        string
	AnswerText       string
	ConfidenceLevel  ConfidenceLevel
	ConfidenceReason string
	Notes            string
	CreatedAt        time.Time
}

// QueryCacheEntry maps a query fingerprint to a prior ACCEPTed session.
// An entry is a valid hit iff ExpiresAt is strictly in the future.
type QueryCacheEntry struct {
	QueryHash string
	SessionID string
	ExpiresAt time.Time
}
