package verify

import (
	"github.com/veriq-io/veriq/pkg/models"
)

// Agent makes the meta-control decision after each verification pass. It is
// pure: the same claims, confidence, and attempt position always produce
// the same decision, and every reason string is safe to surface to callers.
type Agent struct{}

// NewAgent returns the decision policy.
func NewAgent() *Agent {
	return &Agent{}
}

// Decide maps one attempt's verified claims and confidence onto ACCEPT,
// RETRY, or STOP. attempt is 1-based; once attempt reaches maxAttempts every
// would-be RETRY hardens into STOP.
func (a *Agent) Decide(claims []models.VerifiedClaim, confidence models.ConfidenceLevel, attempt, maxAttempts int) models.Decision {
	exhausted := attempt >= maxAttempts

	if len(claims) == 0 {
		if exhausted {
			return models.Stop("No verifiable claims could be found after multiple attempts.")
		}
		return models.Retry(
			"No verifiable claims were found. Additional sources may help.",
			"Search broader or alternative sources.")
	}

	for _, claim := range claims {
		if claim.Status == models.StatusConflict {
			if exhausted {
				return models.Stop("Conflicting evidence persists despite additional verification attempts.")
			}
			return models.Retry(
				"Sources provide conflicting evidence. Further verification may resolve discrepancies.",
				"Seek additional independent sources.")
		}
	}

	switch confidence {
	case models.ConfidenceHigh:
		return models.Accept("Multiple independent sources agree on the same claim. Further verification is unlikely to change the conclusion.")
	case models.ConfidenceMedium:
		return models.Accept("Evidence from multiple sources broadly supports the conclusion, though agreement is limited.")
	case models.ConfidenceLow:
		if exhausted {
			return models.Stop("Confidence remains low after repeated attempts. Further verification is unlikely to improve certainty.")
		}
		return models.Retry(
			"The conclusion is based on limited evidence. Additional independent sources may improve confidence.",
			"Search for authoritative or corroborating sources.")
	default:
		return models.Stop("Unable to determine verification status reliably.")
	}
}
