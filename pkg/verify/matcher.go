package verify

import (
	"context"
	"log/slog"
	"math"

	"github.com/veriq-io/veriq/pkg/llm"
	"github.com/veriq-io/veriq/pkg/models"
)

// similarityThreshold is the cosine similarity at or above which two claims
// count as the same statement.
const similarityThreshold = 0.85

// Matcher groups semantically equivalent claims using embeddings.
type Matcher struct {
	embedder llm.Embedder
	logger   *slog.Logger
}

// NewMatcher wires the embedding provider. A nil logger selects the default.
func NewMatcher(embedder llm.Embedder, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{embedder: embedder, logger: logger.With("component", "matcher")}
}

// Group clusters claims in encounter order. Greedy single-linkage compares
// each claim against the first member of every existing group and joins the
// first match, so identical input always yields identical groups. A claim
// whose embedding fails keeps a zero vector, matches nothing, and opens its
// own group.
func (m *Matcher) Group(ctx context.Context, claims []models.Claim) [][]models.Claim {
	if len(claims) == 0 {
		return nil
	}

	vectors := make([][]float32, len(claims))
	for i, claim := range claims {
		vec, err := m.embedder.Embed(ctx, claim.Text)
		if err != nil {
			m.logger.Warn("Embedding failed, claim will not group", "error", err)
			continue
		}
		vectors[i] = vec.Slice()
	}

	var groups [][]int
	for i := range claims {
		joined := false
		for g := range groups {
			representative := groups[g][0]
			if cosineSimilarity(vectors[i], vectors[representative]) >= similarityThreshold {
				groups[g] = append(groups[g], i)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, []int{i})
		}
	}

	out := make([][]models.Claim, len(groups))
	for g, members := range groups {
		group := make([]models.Claim, len(members))
		for j, idx := range members {
			group[j] = claims[idx]
		}
		out[g] = group
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		da, db := float64(a[i]), float64(b[i])
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
