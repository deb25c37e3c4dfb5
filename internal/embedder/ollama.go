package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaEmbedder embeds queries with a local Ollama server's /api/embed
// endpoint. No API key is needed. It is safe for concurrent use.
type OllamaEmbedder struct {
	url        string
	model      string
	dimensions int
	// keepAlive keeps the model loaded between questions ("" = server default).
	keepAlive string
	client    *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model (e.g. "nomic-embed-text").
	Model string
	// Dimensions, when set, is requested and enforced on the reply.
	Dimensions int
	// KeepAlive is passed through as keep_alive (e.g. "30m").
	KeepAlive string
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		url:        cfg.Host + "/api/embed",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		keepAlive:  cfg.KeepAlive,
		// A cold model load can take far longer than an embedding.
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// Truncate lets an over-long question be cut to the context window
	// instead of failing the search.
	Truncate   bool   `json:"truncate"`
	Dimensions int    `json:"dimensions,omitempty"`
	KeepAlive  string `json:"keep_alive,omitempty"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaErrorMessage extracts the top-level error string Ollama returns.
func ollamaErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error
}

// Embed returns one vector per text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	in := ollamaEmbedRequest{
		Model:      e.model,
		Input:      texts,
		Truncate:   true,
		Dimensions: e.dimensions,
		KeepAlive:  e.keepAlive,
	}
	var result ollamaEmbedResponse
	if err := postJSON(ctx, e.client, e.url, nil, in, &result, ollamaErrorMessage); err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	if err := checkVectors(result.Embeddings, len(texts), e.dimensions); err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return result.Embeddings, nil
}
