package verify

import (
	"context"
	"log/slog"

	"github.com/veriq-io/veriq/pkg/models"
)

// Engine cross-checks extracted claims: it groups near-identical statements
// and classifies each group by source spread and directional agreement.
type Engine struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewEngine wires the claim matcher. A nil logger selects the default.
func NewEngine(matcher *Matcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{matcher: matcher, logger: logger.With("component", "verifier")}
}

// Verify returns one VerifiedClaim per semantic group, in group encounter
// order. The representative text is the first member's claim, verbatim.
func (e *Engine) Verify(ctx context.Context, claims []models.Claim) []models.VerifiedClaim {
	groups := e.matcher.Group(ctx, claims)
	if len(groups) == 0 {
		return nil
	}
	verified := make([]models.VerifiedClaim, 0, len(groups))
	for _, group := range groups {
		verified = append(verified, classify(group))
	}
	e.logger.Debug("Verification complete", "claims", len(claims), "groups", len(verified))
	return verified
}

// classify derives the group's status. One distinct source means
// SINGLE_SOURCE regardless of member count. With two or more sources, any
// pair of members asserting opposite directions makes the group CONFLICT;
// otherwise AGREEMENT.
func classify(group []models.Claim) models.VerifiedClaim {
	seen := make(map[string]bool)
	sources := make([]string, 0, len(group))
	for _, claim := range group {
		if claim.SourceURL == "" || seen[claim.SourceURL] {
			continue
		}
		seen[claim.SourceURL] = true
		sources = append(sources, claim.SourceURL)
	}

	status := models.StatusSingleSource
	if len(sources) >= 2 {
		if hasConflict(group) {
			status = models.StatusConflict
		} else {
			status = models.StatusAgreement
		}
	}
	return models.VerifiedClaim{Claim: group[0].Text, Status: status, Sources: sources}
}

func hasConflict(group []models.Claim) bool {
	polarities := make([]int, len(group))
	for i, claim := range group {
		polarities[i] = polarity(claim.Text)
	}
	for i := 0; i < len(polarities); i++ {
		for j := i + 1; j < len(polarities); j++ {
			if polarities[i]*polarities[j] < 0 {
				return true
			}
		}
	}
	return false
}
