// Package verify turns raw page text into cross-checked claims: oracle
// extraction, semantic grouping, per-group verification status, confidence
// scoring, and the meta-control decision over a research attempt.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/veriq-io/veriq/pkg/llm"
	"github.com/veriq-io/veriq/pkg/models"
)

const (
	// minSourceChars skips pages too short to contain verifiable claims.
	minSourceChars = 50

	// maxSourceChars truncates page text before the oracle call.
	maxSourceChars = 12000

	// minClaimWords drops fragments too short to be factual statements.
	minClaimWords = 8
)

// boilerplateMarkers flag navigation and legal chrome that survives text
// extraction.
var boilerplateMarkers = []string{
	"member fdic",
	"all rights reserved",
	"privacy policy",
	"terms of use",
	"copyright",
	"offers checking accounts",
}

// metadataPatterns flag article chrome: bylines, reading-time tags,
// breadcrumb trails, bare dates, publication stamps.
var metadataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^by\s+[a-z]+(\s+[a-z.'-]+){0,3}$`),
	regexp.MustCompile(`(?i)\b\d+\s+min(ute)?s?\s+read\b`),
	regexp.MustCompile(`(?i)^(home|news|blog)(\s*[>/»]+\s*[\w&' -]+)+$`),
	regexp.MustCompile(`(?i)^(published|updated|posted)[:\s]`),
	regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
}

const extractionPromptFmt = `Extract the key factual claims from the following text.

Rules:
- Output one claim per line, each line starting with "- ".
- Each claim must be a single, self-contained factual statement.
- Keep numbers, dates, and named entities exactly as written.
- Do not add opinions, summaries, or claims that are not in the text.
- If the text contains no factual claims, output NONE.

Text:
%s`

// ClaimExtractor asks the oracle for dash-prefixed factual bullets and
// filters the response down to substantive claims.
type ClaimExtractor struct {
	llm    llm.CompletionClient
	logger *slog.Logger
}

// NewClaimExtractor wires the oracle. A nil logger selects the default.
func NewClaimExtractor(client llm.CompletionClient, logger *slog.Logger) *ClaimExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimExtractor{llm: client, logger: logger.With("component", "extractor")}
}

// Extract returns the substantive claims found in text, each attributed to
// sourceURL. It never returns an error: an oracle failure is logged and
// yields an empty list, so one bad page cannot sink the attempt.
func (e *ClaimExtractor) Extract(ctx context.Context, text, sourceURL string) []models.Claim {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minSourceChars {
		return nil
	}
	if len(trimmed) > maxSourceChars {
		cut := maxSourceChars
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}

	response, err := e.llm.Complete(ctx, fmt.Sprintf(extractionPromptFmt, trimmed))
	if err != nil {
		e.logger.Warn("Claim extraction failed", "source_url", sourceURL, "error", err)
		return nil
	}
	return parseClaims(response, sourceURL)
}

// parseClaims reads dash-prefixed bullets out of an oracle response. Lines
// without the prefix, including a bare NONE, are ignored.
func parseClaims(response, sourceURL string) []models.Claim {
	var claims []models.Claim
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		claim := strings.TrimSpace(strings.TrimLeft(line, "- \t"))
		if claim == "" || !isSubstantive(claim) {
			continue
		}
		claims = append(claims, models.Claim{Text: claim, SourceURL: sourceURL})
	}
	return claims
}

func isSubstantive(claim string) bool {
	if len(strings.Fields(claim)) < minClaimWords {
		return false
	}
	lower := strings.ToLower(claim)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	for _, pattern := range metadataPatterns {
		if pattern.MatchString(claim) {
			return false
		}
	}
	return true
}
