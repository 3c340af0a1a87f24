// Package research runs one research attempt end to end: gather documents,
// extract claims, keep the ones relevant to the question, verify them across
// sources, grade confidence, and synthesize an answer.
package research

import (
	"context"
	"log/slog"

	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/verify"
)

// Environment produces fetched, text-extracted documents for a query along
// with an error log. It never fails outright.
type Environment interface {
	Run(ctx context.Context, query string, numDocs int) ([]models.Document, []string)
}

// ClaimExtractor pulls atomic factual claims out of page text.
type ClaimExtractor interface {
	Extract(ctx context.Context, text, sourceURL string) []models.Claim
}

// Verifier groups claims across sources and classifies each group.
type Verifier interface {
	Verify(ctx context.Context, claims []models.Claim) []models.VerifiedClaim
}

// Synthesizer phrases the final answer over verified claims.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, claims []models.VerifiedClaim, level models.ConfidenceLevel, reason string) models.ResearchResult
}

// Agent is the single-attempt research pipeline. Retries and strategy belong
// to the planner; the agent only turns one query into one result.
type Agent struct {
	env         Environment
	extractor   ClaimExtractor
	verifier    Verifier
	synthesizer Synthesizer
	logger      *slog.Logger
}

// New wires the pipeline stages. A nil logger selects the default.
func New(env Environment, extractor ClaimExtractor, verifier Verifier, synthesizer Synthesizer, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		env:         env,
		extractor:   extractor,
		verifier:    verifier,
		synthesizer: synthesizer,
		logger:      logger.With("component", "research"),
	}
}

// Run executes one research attempt. It never returns an error: adapter
// failures surface in the result's error log and the attempt degrades to a
// LOW-confidence result instead of aborting.
func (a *Agent) Run(ctx context.Context, question string, numDocs int) models.ResearchResult {
	documents, errLog := a.env.Run(ctx, question, numDocs)

	var claims []models.Claim
	for _, doc := range documents {
		for _, claim := range a.extractor.Extract(ctx, doc.Text, doc.URL) {
			if isRelevant(claim.Text, question) {
				claims = append(claims, claim)
			}
		}
	}

	if len(claims) == 0 {
		a.logger.Info("No relevant claims extracted", "documents", len(documents))
		return models.ResearchResult{
			Answer:           "Insufficient verified information is available to answer this question.",
			ConfidenceLevel:  models.ConfidenceLow,
			ConfidenceReason: "No relevant claims could be extracted from available sources.",
			Notes:            "Further investigation is recommended.",
			DocumentCount:    len(documents),
			Errors:           errLog,
		}
	}

	verified := a.verifier.Verify(ctx, claims)
	level, reason := verify.ScoreConfidence(verified)
	a.logger.Info("Research attempt complete",
		"documents", len(documents), "claims", len(claims),
		"verified", len(verified), "confidence", level)

	result := a.synthesizer.Synthesize(ctx, question, verified, level, reason)
	result.DocumentCount = len(documents)
	result.Errors = errLog
	return result
}
