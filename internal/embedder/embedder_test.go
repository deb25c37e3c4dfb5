package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var got openaiEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		// Out of order on purpose; the embedder places by index.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "sk-test",
		Model:      "text-embedding-3-large",
		Dimensions: 2,
	})
	vecs, err := emb.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
	assert.Equal(t, "text-embedding-3-large", got.Model)
	assert.Equal(t, 2, got.Dimensions)
	assert.Equal(t, []string{"first", "second"}, got.Input)
}

func TestOpenAIEmbedder_Azure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/embed-large/embeddings", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL + "/openai",
		APIKey:     "az-key",
		Model:      "embed-large",
		Azure:      true,
		APIVersion: "2024-02-01",
	})
	vecs, err := emb.Embed(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	tests := map[string]struct {
		status  int
		body    string
		wantErr string
	}{
		"api error message": {http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, "invalid api key"},
		"bare status":       {http.StatusBadGateway, `{}`, "HTTP 502"},
		"count mismatch":    {http.StatusOK, `{"data":[]}`, "expected 1 embeddings, got 0"},
		"index range":       {http.StatusOK, `{"data":[{"index":4,"embedding":[1]}]}`, "out of range"},
		"not json":          {http.StatusOK, `<html>`, "decode response"},
		"gateway page":      {http.StatusServiceUnavailable, "upstream connect error\n<html>", "HTTP 503: upstream connect error"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
			_, err := emb.Embed(context.Background(), []string{"q"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	vecs, err := emb.Embed(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}}, vecs)
}

func TestOllamaEmbedder_SendsOptionsAndChecksDimensions(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text", Dimensions: 768, KeepAlive: "30m"})
	_, err := emb.Embed(context.Background(), []string{"what is grace"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding 0 has 3 dimensions, want 768")

	assert.True(t, got.Truncate)
	assert.Equal(t, 768, got.Dimensions)
	assert.Equal(t, "30m", got.KeepAlive)
}

func TestOllamaEmbedder_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nomic-embed-text\" not found"}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	_, err := emb.Embed(context.Background(), []string{"q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
