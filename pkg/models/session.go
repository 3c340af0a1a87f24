// Package models defines the domain types shared by the planner, the
// verification pipeline, the store, and the API surface.
package models

import "time"

// SessionStatus is the lifecycle state of a query session. PROCESSING is an
// API-level alias returned at submit time and is never stored.
type SessionStatus string

const (
	StatusInit       SessionStatus = "INIT"
	StatusResearch   SessionStatus = "RESEARCH"
	StatusVerify     SessionStatus = "VERIFY"
	StatusSynthesize SessionStatus = "SYNTHESIZE"
	StatusDone       SessionStatus = "DONE"
	StatusFailed     SessionStatus = "FAILED"
)

// IsTerminal reports whether the status is final. Terminal sessions are
// frozen: no writer may mutate them again.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Session is one submitted question and its lifecycle.
type Session struct {
	ID                    string        `json:"id"`
	Question              string        `json:"question"`
	Status                SessionStatus `json:"status"`
	FinalConfidenceLevel  string        `json:"final_confidence_level,omitempty"`
	FinalConfidenceReason string        `json:"final_confidence_reason,omitempty"`
	ClaimedBy             string        `json:"-"`
	ClaimedAt             *time.Time    `json:"-"`
	CreatedAt             time.Time     `json:"created_at"`
}
