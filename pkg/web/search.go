// Package web implements the retrieval environment: web search, page fetch,
// and plain-text extraction behind a facade that isolates every adapter
// failure from the pipeline.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SearchResult is one ranked hit returned by a search backend.
type SearchResult struct {
	URL   string
	Title string
}

// SearchClient finds candidate source URLs for a query.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// GoogleSearchClient queries the Google Custom Search JSON API.
type GoogleSearchClient struct {
	endpoint   string
	apiKey     string
	cx         string
	httpClient *http.Client
}

// NewGoogleSearchClient creates a search client. An empty endpoint selects
// the public API.
func NewGoogleSearchClient(endpoint, apiKey, cx string) *GoogleSearchClient {
	if endpoint == "" {
		endpoint = "https://www.googleapis.com/customsearch/v1"
	}
	return &GoogleSearchClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		cx:         cx,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type googleSearchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns up to limit ranked results. A response without items is an
// empty result, not an error.
func (c *GoogleSearchClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("web: create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web: send search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("web: read search response: %w", err)
	}

	var result googleSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("web: unmarshal search response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("web: search error %d: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web: search: unexpected status %d", resp.StatusCode)
	}

	results := make([]SearchResult, 0, len(result.Items))
	for _, item := range result.Items {
		results = append(results, SearchResult{URL: item.Link, Title: item.Title})
	}
	return results, nil
}
