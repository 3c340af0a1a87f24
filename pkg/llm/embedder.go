package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

type embedRequest struct {
	Model   string        `json:"model"`
	Content promptContent `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *apiError `json:"error"`
}

// Embed generates a single embedding vector for the text.
func (c *GeminiClient) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	reqBody, err := json.Marshal(embedRequest{
		Model:   "models/" + c.embedModel,
		Content: promptContent{Parts: []promptPart{{Text: text}}},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("llm: marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", c.endpoint, c.embedModel)
	body, err := c.post(ctx, url, reqBody)
	if err != nil {
		return pgvector.Vector{}, err
	}

	var result embedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return pgvector.Vector{}, fmt.Errorf("llm: unmarshal embed response: %w", err)
	}
	if result.Error != nil {
		return pgvector.Vector{}, fmt.Errorf("llm: gemini error: %s: %s", result.Error.Status, result.Error.Message)
	}
	if len(result.Embedding.Values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("llm: empty embedding")
	}
	return pgvector.NewVector(result.Embedding.Values), nil
}
