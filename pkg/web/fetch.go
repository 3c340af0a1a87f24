package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultUserAgent    = "veriq-research/1.0"
	defaultMaxAttempts  = 3
	defaultBackoff      = 2 * time.Second
	defaultFetchTimeout = 8 * time.Second

	// defaultMaxBodyBytes caps how much of a page is read. Pages past the
	// cap are truncated rather than rejected.
	defaultMaxBodyBytes = 2 << 20
)

// Fetcher downloads pages with bounded retries and a hard body cap. The
// zero value is not usable; construct with NewFetcher and override fields
// as needed (tests shrink Backoff).
type Fetcher struct {
	HTTPClient   *http.Client
	UserAgent    string
	MaxAttempts  int
	Backoff      time.Duration
	MaxBodyBytes int64
}

// NewFetcher returns a fetcher with production defaults.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient:   &http.Client{Timeout: defaultFetchTimeout},
		UserAgent:    defaultUserAgent,
		MaxAttempts:  defaultMaxAttempts,
		Backoff:      defaultBackoff,
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

// Fetch downloads one URL, retrying with a fixed pause between attempts.
// The last attempt's error wins.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.Backoff):
			}
		}
		body, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
