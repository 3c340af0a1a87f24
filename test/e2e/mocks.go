package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// embedDim is the dimensionality of scripted embeddings. Each distinct text
// gets its own one-hot axis, so identical texts are cosine 1.0 and distinct
// texts are orthogonal.
const embedDim = 64

// ScriptedOracle stands in for the Gemini REST API. Completions are answered
// by substring-matched scripts in registration order; embeddings are one-hot
// vectors keyed by exact text.
type ScriptedOracle struct {
	Server *httptest.Server

	mu      sync.Mutex
	scripts []oracleScript
	delay   time.Duration
	indexes map[string]int
}

type oracleScript struct {
	contains string
	reply    string
}

// NewScriptedOracle starts the mock API. Shutdown is registered on t.
func NewScriptedOracle(t *testing.T) *ScriptedOracle {
	t.Helper()
	o := &ScriptedOracle{indexes: make(map[string]int)}
	o.Server = httptest.NewServer(http.HandlerFunc(o.handle))
	t.Cleanup(o.Server.Close)
	return o
}

// Script registers a completion reply for any prompt containing the marker.
// Earlier registrations win, so register specific markers first.
func (o *ScriptedOracle) Script(contains, reply string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts = append(o.scripts, oracleScript{contains: contains, reply: reply})
}

// SetDelay makes every completion stall before answering. Used to simulate a
// slow upstream; the stall aborts early when the caller abandons the request.
func (o *ScriptedOracle) SetDelay(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delay = d
}

func (o *ScriptedOracle) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		o.handleGenerate(w, r)
	case strings.HasSuffix(r.URL.Path, ":embedContent"):
		o.handleEmbed(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (o *ScriptedOracle) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var sb strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	prompt := sb.String()

	o.mu.Lock()
	delay := o.delay
	scripts := make([]oracleScript, len(o.scripts))
	copy(scripts, o.scripts)
	o.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	reply := defaultReply(prompt)
	for _, s := range scripts {
		if strings.Contains(prompt, s.contains) {
			reply = s.reply
			break
		}
	}
	writeJSON(w, map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": reply}}}},
		},
	})
}

// defaultReply keeps unscripted prompts harmless: extraction finds nothing
// and synthesis stays noncommittal.
func defaultReply(prompt string) string {
	if strings.Contains(prompt, "Verified claims:") {
		return "The available verified evidence does not support a confident answer."
	}
	return "NONE"
}

func (o *ScriptedOracle) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var sb strings.Builder
	for _, p := range req.Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()

	o.mu.Lock()
	idx, ok := o.indexes[text]
	if !ok {
		idx = len(o.indexes) % embedDim
		o.indexes[text] = idx
	}
	o.mu.Unlock()

	values := make([]float32, embedDim)
	values[idx] = 1
	writeJSON(w, map[string]any{"embedding": map[string]any{"values": values}})
}

// ScriptedSearch stands in for the Google Custom Search API. Routes map a
// query keyword to a result list; the first matching route wins, so register
// specific keywords first. Unmatched queries return no items.
type ScriptedSearch struct {
	Server *httptest.Server

	mu      sync.Mutex
	routes  []searchRoute
	failing bool
	calls   int
}

type searchRoute struct {
	keyword string
	links   []string
}

// NewScriptedSearch starts the mock API. Shutdown is registered on t.
func NewScriptedSearch(t *testing.T) *ScriptedSearch {
	t.Helper()
	s := &ScriptedSearch{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// Route serves links for queries containing the keyword (case-insensitive).
func (s *ScriptedSearch) Route(keyword string, links ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, searchRoute{keyword: strings.ToLower(keyword), links: links})
}

// Fail makes every subsequent search respond with a backend error.
func (s *ScriptedSearch) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = true
}

// Calls reports how many searches were received.
func (s *ScriptedSearch) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *ScriptedSearch) handle(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	s.calls++
	failing := s.failing
	routes := make([]searchRoute, len(s.routes))
	copy(routes, s.routes)
	s.mu.Unlock()

	if failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 503, "message": "search backend unavailable"},
		})
		return
	}

	items := []any{}
	for _, route := range routes {
		if strings.Contains(query, route.keyword) {
			for _, link := range route.links {
				items = append(items, map[string]any{"title": link, "link": link})
			}
			break
		}
	}
	writeJSON(w, map[string]any{"items": items})
}

// StaticSite serves registered article pages so the fetcher has something
// real to download and extract.
type StaticSite struct {
	Server *httptest.Server

	mu    sync.Mutex
	pages map[string]string
}

// NewStaticSite starts the mock site. Shutdown is registered on t.
func NewStaticSite(t *testing.T) *StaticSite {
	t.Helper()
	site := &StaticSite{pages: make(map[string]string)}
	site.Server = httptest.NewServer(http.HandlerFunc(site.handle))
	t.Cleanup(site.Server.Close)
	return site
}

// AddPage registers an article at path and returns its absolute URL. The
// body paragraphs are wrapped in enough HTML chrome to look like a page.
func (s *StaticSite) AddPage(path, title string, paragraphs ...string) string {
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<p>%s</p>\n", p)
	}
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<nav>Home</nav>
<article>
<h1>%s</h1>
%s</article>
</body>
</html>`, title, title, body.String())

	s.mu.Lock()
	s.pages[path] = page
	s.mu.Unlock()
	return s.Server.URL + path
}

func (s *StaticSite) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page, ok := s.pages[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
