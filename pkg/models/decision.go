package models

// DecisionKind tags a meta-control decision.
type DecisionKind string

const (
	DecisionAccept DecisionKind = "ACCEPT"
	DecisionRetry  DecisionKind = "RETRY"
	DecisionStop   DecisionKind = "STOP"
)

// Decision is the verification agent's verdict over a set of verified
// claims. Reason is user-facing. Recommendation is a short hint consumed
// only by the planner's strategy selector and is set only on RETRY.
type Decision struct {
	Kind           DecisionKind
	Reason         string
	Recommendation string
}

// Accept builds an ACCEPT decision.
func Accept(reason string) Decision {
	return Decision{Kind: DecisionAccept, Reason: reason}
}

// Retry builds a RETRY decision carrying a strategy hint.
func Retry(reason, recommendation string) Decision {
	return Decision{Kind: DecisionRetry, Reason: reason, Recommendation: recommendation}
}

// Stop builds a STOP decision.
func Stop(reason string) Decision {
	return Decision{Kind: DecisionStop, Reason: reason}
}
