package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "test-cx", q.Get("cx"))
		assert.Equal(t, "solar adoption trends", q.Get("q"))
		assert.Equal(t, "3", q.Get("num"))

		_, _ = w.Write([]byte(`{"items":[
			{"title":"Report A","link":"https://a.example/report"},
			{"title":"Report B","link":"https://b.example/report"}
		]}`))
	}))
	defer server.Close()

	client := NewGoogleSearchClient(server.URL, "test-key", "test-cx")
	results, err := client.Search(context.Background(), "solar adoption trends", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example/report", results[0].URL)
	assert.Equal(t, "Report B", results[1].Title)
}

func TestGoogleSearchNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
	}))
	defer server.Close()

	client := NewGoogleSearchClient(server.URL, "k", "c")
	results, err := client.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGoogleSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewGoogleSearchClient(server.URL, "k", "c")
	_, err := client.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
