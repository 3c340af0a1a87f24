// Package synthesis phrases a final answer from verified claims. The
// synthesizer is value-returning only: persistence belongs to the planner,
// and the oracle is used for wording, never for new facts.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veriq-io/veriq/pkg/llm"
	"github.com/veriq-io/veriq/pkg/models"
)

const (
	insufficientAnswer = "Insufficient verified information is available to answer this question."

	// lowConfidenceWarning is attached as notes whenever the overall
	// confidence is LOW.
	lowConfidenceWarning = "The available evidence is limited or conflicting. Further independent confirmation is recommended."
)

const synthesisPromptFmt = `Write a short answer to the question below using only the verified claims provided.

Rules:
- Use only the claims listed. Do not add facts, numbers, or names from anywhere else.
- Do not speculate or infer beyond what the claims state.
- Keep the meaning of every claim unchanged.
- Be measured and factual in tone.
- Answer in one short paragraph.

Question:
%s

Verified claims:
%s

Overall confidence: %s`

// Synthesizer turns verified claims into a constrained natural-language
// answer.
type Synthesizer struct {
	llm    llm.CompletionClient
	logger *slog.Logger
}

// New wires the oracle. A nil logger selects the default.
func New(client llm.CompletionClient, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{llm: client, logger: logger.With("component", "synthesizer")}
}

// Synthesize phrases an answer over the verified claims. Claims and sources
// are carried into the result verbatim. With no claims it short-circuits to
// the standard insufficient-information record without an oracle call; an
// oracle failure degrades to an empty answer with confidence and evidence
// preserved.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, claims []models.VerifiedClaim, level models.ConfidenceLevel, reason string) models.ResearchResult {
	if len(claims) == 0 {
		return models.ResearchResult{
			Answer:           insufficientAnswer,
			ConfidenceLevel:  models.ConfidenceLow,
			ConfidenceReason: "No verifiable claims were found.",
			Notes:            "No relevant claims could be extracted.",
		}
	}

	answer, err := s.llm.Complete(ctx, buildPrompt(question, claims, level))
	if err != nil {
		s.logger.Warn("Answer synthesis failed, returning empty answer", "error", err)
		answer = ""
	}

	var notes string
	if level == models.ConfidenceLow {
		notes = lowConfidenceWarning
	}
	return models.ResearchResult{
		Answer:           answer,
		ConfidenceLevel:  level,
		ConfidenceReason: reason,
		Evidence:         claims,
		Notes:            notes,
	}
}

func buildPrompt(question string, claims []models.VerifiedClaim, level models.ConfidenceLevel) string {
	lines := make([]string, len(claims))
	for i, c := range claims {
		lines[i] = fmt.Sprintf("- %s (Status: %s)", c.Claim, c.Status)
	}
	return fmt.Sprintf(synthesisPromptFmt, question, strings.Join(lines, "\n"), level)
}
