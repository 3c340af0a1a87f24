package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "- claim one\n"},
					{"text": "- claim two\n"},
				}}},
			},
		})
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key")
	got, err := client.Complete(context.Background(), "extract claims")
	require.NoError(t, err)
	assert.Equal(t, "- claim one\n- claim two", got, "parts are joined and trimmed")

	t.Run("sampling is deterministic", func(t *testing.T) {
		cfg := captured.GenerationConfig
		assert.Zero(t, cfg.Temperature)
		assert.Equal(t, float64(1), cfg.TopP)
		assert.Equal(t, 1, cfg.TopK)
		assert.Equal(t, maxOutputTokens, cfg.MaxOutputTokens)
	})

	t.Run("prompt travels in contents", func(t *testing.T) {
		require.Len(t, captured.Contents, 1)
		require.Len(t, captured.Contents[0].Parts, 1)
		assert.Equal(t, "extract claims", captured.Contents[0].Parts[0].Text)
	})
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCompleteNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "text-embedding-004:embedContent"), "unexpected path %s", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "models/text-embedding-004", req.Model)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.25, -0.5, 1}},
		})
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key")
	vec, err := client.Embed(context.Background(), "solar capacity doubled")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec.Slice())
}

func TestEmbedUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key")
	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
