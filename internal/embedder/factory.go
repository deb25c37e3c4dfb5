package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/rag"
)

// Default embedding models per backend. The corpus is indexed with
// text-embedding-3-large, so query vectors must come from the same model.
const (
	defaultOpenAIModel = "text-embedding-3-large"
	defaultOllamaModel = "nomic-embed-text"
	defaultGeminiModel = "text-embedding-004"

	// defaultOpenAIDimensions is the output dimension of text-embedding-3-large.
	defaultOpenAIDimensions = 3072
)

// Config selects and configures the query embedder.
type Config struct {
	// Provider is one of openai, azure, ollama, gemini.
	Provider string
	// Model is the embedding model or Azure deployment name.
	Model string
	// Dimensions is the requested vector length (0 = model default).
	Dimensions int
	// APIKey authenticates against openai, azure and gemini.
	APIKey string
	// Endpoint is the API base URL (OpenAI gateway, Azure resource, Ollama host).
	Endpoint string
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
	// KeepAlive is how long Ollama keeps the model loaded (OLLAMA_KEEP_ALIVE).
	KeepAlive string
}

// ConfigFromEnv resolves the embedder configuration with cascading defaults
// that inherit from the chat provider when embedding-specific overrides are
// not set.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER; if unset, MODEL_PROVIDER when it names an embedding
//     backend, otherwise openai
//  2. Per-backend credentials are inherited from the chat provider's env vars
//  3. EMBEDDING_MODEL overrides the default model for the resolved backend
//  4. EMBEDDING_API_KEY overrides the inherited API key
//  5. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  6. EMBEDDING_DIMENSIONS overrides the default dimensions (openai/azure: 3072)
func ConfigFromEnv() *Config {
	backend := strings.ToLower(config.String("EMBEDDING_PROVIDER", ""))
	if backend == "" {
		switch chat := strings.ToLower(config.String("MODEL_PROVIDER", "")); chat {
		case "openai", "azure", "ollama", "gemini":
			backend = chat
		default:
			backend = "openai"
		}
	}

	cfg := &Config{
		Provider: backend,
		APIKey:   config.String("EMBEDDING_API_KEY", ""),
		Endpoint: config.String("EMBEDDING_ENDPOINT", ""),
	}

	switch backend {
	case "openai":
		cfg.Model = config.String("EMBEDDING_MODEL", defaultOpenAIModel)
		cfg.Dimensions = config.Int("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		if cfg.APIKey == "" {
			cfg.APIKey = config.String("OPENAI_API_KEY", "")
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = "https://api.openai.com/v1"
		}
	case "azure":
		cfg.Model = config.String("EMBEDDING_MODEL", defaultOpenAIModel)
		cfg.Dimensions = config.Int("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		cfg.APIVersion = config.String("AZURE_OPENAI_API_VERSION", "2024-02-01")
		if cfg.APIKey == "" {
			cfg.APIKey = config.String("AZURE_OPENAI_API_KEY", "")
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = config.String("AZURE_OPENAI_ENDPOINT", "")
		}
	case "ollama":
		cfg.Model = config.String("EMBEDDING_MODEL", defaultOllamaModel)
		cfg.Dimensions = config.Int("EMBEDDING_DIMENSIONS", 0)
		cfg.KeepAlive = config.String("OLLAMA_KEEP_ALIVE", "")
		if cfg.Endpoint == "" {
			cfg.Endpoint = config.String("OLLAMA_HOST", "http://localhost:11434")
		}
	case "gemini":
		cfg.Model = config.String("EMBEDDING_MODEL", defaultGeminiModel)
		cfg.Dimensions = config.Int("EMBEDDING_DIMENSIONS", 0)
		if cfg.APIKey == "" {
			cfg.APIKey = config.String("GOOGLE_API_KEY", "")
		}
	}
	return cfg
}

// NewFromEnv constructs a rag.Embedder from ConfigFromEnv.
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	return New(ctx, ConfigFromEnv())
}

// New constructs a rag.Embedder from an explicit Config.
func New(ctx context.Context, cfg *Config) (rag.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.Endpoint, "/"),
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case "azure":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.Endpoint, "/") + "/openai",
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: cfg.APIVersion,
		}), nil
	case "ollama":
		return NewOllamaEmbedder(&OllamaConfig{
			Host:       strings.TrimRight(cfg.Endpoint, "/"),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			KeepAlive:  cfg.KeepAlive,
		}), nil
	case "gemini":
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, unknownBackend(cfg.Provider)
	}
}

func unknownBackend(b string) error {
	return fmt.Errorf("embedder: unknown backend %q, valid values: openai, azure, ollama, gemini", b)
}
