package provider

import (
	"net/http"
	"strings"
)

// HealthProbe describes a zero-cost request that proves the configured
// backend is reachable and the credentials are accepted. Listing models costs
// no tokens, unlike a one-token generate call.
type HealthProbe struct {
	// URL is fetched with GET; any 2xx response means healthy.
	URL string
	// Header carries the backend's authentication header.
	Header http.Header
}

// HealthProbe returns the readiness probe for the configured backend. The
// second result is false for backends without a cheap model
// listing endpoint; callers skip the LLM readiness check for those.
func (c *Config) HealthProbe() (HealthProbe, bool) {
	h := http.Header{}
	switch c.Backend {
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		h.Set("Authorization", "Bearer "+c.OpenAI.APIKey)
		return HealthProbe{URL: strings.TrimRight(base, "/") + "/models", Header: h}, true
	case BackendAzure:
		h.Set("api-key", c.AzureOpenAI.APIKey)
		url := strings.TrimRight(c.AzureOpenAI.Endpoint, "/") +
			"/openai/models?api-version=" + c.AzureOpenAI.APIVersion
		return HealthProbe{URL: url, Header: h}, true
	case BackendOllama:
		return HealthProbe{URL: strings.TrimRight(c.Ollama.Host, "/") + "/api/tags", Header: h}, true
	case BackendGemini:
		h.Set("x-goog-api-key", c.Gemini.APIKey)
		return HealthProbe{URL: "https://generativelanguage.googleapis.com/v1beta/models", Header: h}, true
	default:
		return HealthProbe{}, false
	}
}
