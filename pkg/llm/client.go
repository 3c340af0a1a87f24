// Package llm provides the language oracle used for claim extraction and
// answer synthesis, plus the embedding provider backing semantic claim
// matching. Both run over the Gemini REST API; the interfaces let consumers
// swap providers without caring.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CompletionClient generates text from a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	defaultModel      = "gemini-2.5-flash"
	defaultEmbedModel = "text-embedding-004"

	// maxOutputTokens bounds every completion. Extraction and synthesis
	// prompts both ask for short output, so a single cap covers both.
	maxOutputTokens = 512
)

// GeminiClient calls the generative-language REST API. Sampling is pinned to
// deterministic settings (temperature 0, topP 1, topK 1) so identical inputs
// produce identical claims and answers.
type GeminiClient struct {
	endpoint   string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
}

// NewGeminiClient creates a client against the given API base URL. An empty
// endpoint selects the public API.
func NewGeminiClient(endpoint, apiKey string) *GeminiClient {
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com"
	}
	return &GeminiClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      defaultModel,
		embedModel: defaultEmbedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Contents         []promptContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type promptContent struct {
	Parts []promptPart `json:"parts"`
}

type promptPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []promptPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Complete sends one prompt and returns the trimmed model text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: []promptContent{{Parts: []promptPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0,
			TopP:            1,
			TopK:            1,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	body, err := c.post(ctx, url, reqBody)
	if err != nil {
		return "", err
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("llm: gemini error: %s: %s", result.Error.Status, result.Error.Message)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("llm: empty response: no candidates")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// post sends a JSON request and returns the raw body for any 2xx status.
// Non-2xx bodies are decoded for the structured API error before giving up.
func (c *GeminiClient) post(ctx context.Context, url string, reqBody []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Header auth keeps the key out of URLs and logs.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error *apiError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &failure); jsonErr == nil && failure.Error != nil {
			return nil, fmt.Errorf("llm: gemini error: %s: %s", failure.Error.Status, failure.Error.Message)
		}
		return nil, fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
