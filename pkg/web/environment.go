package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/veriq-io/veriq/pkg/models"
)

const (
	// MaxPages caps how many documents one research attempt may gather.
	MaxPages = 5

	// MinTextLength drops pages whose extracted text is too short to carry
	// verifiable claims.
	MinTextLength = 150

	// fetchParallelism bounds concurrent page downloads.
	fetchParallelism = 4
)

// DefaultBlockedDomains are hosts skipped during research: social networks
// and UGC platforms whose pages are login walls or unverifiable chatter.
// Matching is exact-host or dot-suffix, so subdomains are covered.
var DefaultBlockedDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"tiktok.com",
	"reddit.com",
	"pinterest.com",
	"youtube.com",
	"linkedin.com",
	"quora.com",
}

// Environment turns a query into fetched, text-extracted documents. It is
// the only component that talks to the open web.
type Environment struct {
	search  SearchClient
	fetcher *Fetcher
	blocked []string
	logger  *slog.Logger
}

// NewEnvironment wires a search backend and a fetcher. Nil fetcher and
// logger select defaults.
func NewEnvironment(search SearchClient, fetcher *Fetcher, logger *slog.Logger) *Environment {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Environment{
		search:  search,
		fetcher: fetcher,
		blocked: DefaultBlockedDomains,
		logger:  logger.With("component", "web"),
	}
}

// Run searches for query and returns up to n fetched documents plus an
// error log. It never returns an error: every adapter failure becomes one
// string in the log and the pipeline continues with whatever survived.
// Document order follows search rank.
func (e *Environment) Run(ctx context.Context, query string, n int) ([]models.Document, []string) {
	if n < 1 {
		n = 1
	}
	if n > MaxPages {
		n = MaxPages
	}

	var errLog []string
	results, err := e.search.Search(ctx, query, n)
	if err != nil {
		e.logger.Warn("Search failed", "error", err)
		return nil, append(errLog, fmt.Sprintf("search failed: %v", err))
	}

	seen := make(map[string]bool)
	var targets []SearchResult
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		if e.isBlocked(r.URL) {
			e.logger.Debug("Skipping blocked domain", "url", r.URL)
			continue
		}
		targets = append(targets, r)
	}

	// Rank-indexed slots keep output order deterministic under parallel
	// fetching.
	docs := make([]*models.Document, len(targets))
	fetchErrs := make([]string, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(fetchParallelism)
	for i, target := range targets {
		g.Go(func() error {
			body, err := e.fetcher.Fetch(ctx, target.URL)
			if err != nil {
				fetchErrs[i] = fmt.Sprintf("%s: %v", target.URL, err)
				return nil
			}
			title, text := ExtractText(body)
			if len(text) < MinTextLength {
				e.logger.Debug("Skipping page with too little text", "url", target.URL, "chars", len(text))
				return nil
			}
			if title == "" {
				title = target.Title
			}
			docs[i] = &models.Document{URL: target.URL, Title: title, Text: text}
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Document
	for i := range targets {
		if fetchErrs[i] != "" {
			errLog = append(errLog, fetchErrs[i])
		}
		if docs[i] != nil {
			out = append(out, *docs[i])
		}
	}
	e.logger.Info("Environment run complete", "query_len", len(query), "documents", len(out), "errors", len(errLog))
	return out, errLog
}

func (e *Environment) isBlocked(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range e.blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
