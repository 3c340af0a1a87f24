package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/veriq-io/veriq/pkg/models"
)

// Fingerprint identifies one (question, strategy, breadth) search intent as
// a SHA-256 hex digest. The question component is lowercased with whitespace
// collapsed, so trivial reformattings of the same question share a cache
// entry; strategy and document count are part of the key because they change
// what the search would return.
func Fingerprint(question string, strategy models.Strategy, numDocs int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	key := fmt.Sprintf("%s|%s|%d", normalized, strategy, numDocs)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ModifyQuery appends the strategy's fixed search operators to the question.
// BASE leaves it untouched. The fingerprint always hashes the original
// question, never the modified query.
func ModifyQuery(question string, strategy models.Strategy) string {
	switch strategy {
	case models.StrategyBroadenQuery:
		return question + " explanation overview"
	case models.StrategyAuthoritativeSites:
		return question + " site:gov OR site:edu"
	case models.StrategyResearchFocused:
		return question + " research report policy"
	default:
		return question
	}
}
