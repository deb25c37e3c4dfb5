package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"gemini-",
	"phi-",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate reports configuration that cannot work, naming the env var the
// operator has to set.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case "azure":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if c.Endpoint == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	case "ollama":
		if c.Endpoint == "" {
			return fmt.Errorf("embedder: ollama requires OLLAMA_HOST or EMBEDDING_ENDPOINT")
		}
	case "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: gemini requires GOOGLE_API_KEY or EMBEDDING_API_KEY")
		}
	default:
		return unknownBackend(c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("embedder: EMBEDDING_MODEL must not be empty")
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("embedder: EMBEDDING_DIMENSIONS must not be negative, got %d", c.Dimensions)
	}
	return nil
}

// WarnMisconfiguration logs configuration that works but is probably wrong:
// a chat model used for embeddings, or dimensions that differ from the
// corpus index.
func (c *Config) WarnMisconfiguration(log *slog.Logger) {
	if looksLikeChatModel(c.Model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model; "+
			"query vectors will not match the corpus index",
			slog.String("model", c.Model),
			slog.String("hint", "use the model the corpus was indexed with, e.g. text-embedding-3-large"),
		)
	}
	if c.Provider != "openai" && c.Provider != "azure" {
		log.Warn("embedder: the corpus index is normally built with OpenAI embeddings; "+
			"make sure the collection was indexed with this backend",
			slog.String("provider", c.Provider),
			slog.String("model", c.Model),
		)
	}
}
