package verify

import (
	"fmt"

	"github.com/veriq-io/veriq/pkg/models"
)

// ScoreConfidence grades a verified claim set and explains the grade. Rules
// evaluate in priority order and the first hit wins, so a single conflict
// outweighs any amount of agreement.
func ScoreConfidence(claims []models.VerifiedClaim) (models.ConfidenceLevel, string) {
	total := len(claims)
	if total == 0 {
		return models.ConfidenceLow, "No verified claims available."
	}

	var conflicts, singles, agreements int
	sources := make(map[string]bool)
	for _, claim := range claims {
		switch claim.Status {
		case models.StatusConflict:
			conflicts++
		case models.StatusSingleSource:
			singles++
		case models.StatusAgreement:
			agreements++
		}
		for _, s := range claim.Sources {
			sources[s] = true
		}
	}

	switch {
	case conflicts > 0:
		return models.ConfidenceLow, fmt.Sprintf("Conflicting information detected in %d claim(s).", conflicts)
	case singles == total:
		return models.ConfidenceLow, fmt.Sprintf("All %d claim(s) from single sources only (no corroboration).", total)
	case agreements == 0:
		return models.ConfidenceLow, "No claims have multi-source agreement."
	case float64(agreements) >= float64(total)*0.5 && len(sources) >= 2:
		return models.ConfidenceHigh, fmt.Sprintf("Strong agreement: %d/%d claims corroborated by multiple independent sources (%d total).", agreements, total, len(sources))
	case agreements > 0:
		return models.ConfidenceMedium, fmt.Sprintf("Partial corroboration: %d/%d claims agreed upon.", agreements, total)
	default:
		return models.ConfidenceLow, "Insufficient evidence for confident answer."
	}
}
