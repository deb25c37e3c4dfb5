// Package provider selects and constructs the chat model backend used by the
// generation client. Supported backends: OpenAI, Azure OpenAI, Ollama,
// Google Gemini and Volcengine Ark.
package provider

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects a Volcengine Ark model endpoint.
	BackendArk Backend = "ark"
)

// Config holds all provider-level configuration. Only the sub-struct that
// matches Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// OpenAI holds OpenAI settings.
	OpenAI ProviderOpenAI

	// AzureOpenAI holds Azure OpenAI settings.
	AzureOpenAI ProviderAzureOpenAI

	// Ollama holds Ollama settings.
	Ollama ProviderOllama

	// Gemini holds Google Gemini settings.
	Gemini ProviderGemini

	// Ark holds Volcengine Ark settings.
	Ark ProviderArk

	// Tuning holds sampling parameters shared by every backend.
	Tuning SharedTuning
}

// ProviderOpenAI configures the OpenAI backend.
type ProviderOpenAI struct {
	// APIKey is read from OPENAI_API_KEY.
	APIKey string
	// Model is the chat model name, e.g. "gpt-4o".
	Model string
	// BaseURL overrides the API endpoint for OpenAI-compatible gateways.
	BaseURL string
}

// ProviderAzureOpenAI configures the Azure OpenAI backend.
type ProviderAzureOpenAI struct {
	// APIKey is read from AZURE_OPENAI_API_KEY.
	APIKey string
	// Endpoint is the resource endpoint, e.g. https://my.openai.azure.com.
	Endpoint string
	// Deployment is the deployment name used as the model identifier.
	Deployment string
	// APIVersion is the Azure REST API version.
	APIVersion string
}

// ProviderOllama configures the Ollama backend.
type ProviderOllama struct {
	// Host is the Ollama API base URL.
	Host string
	// Model is the local model name.
	Model string
}

// ProviderGemini configures the Google Gemini backend.
type ProviderGemini struct {
	// APIKey is read from GOOGLE_API_KEY.
	APIKey string
	// Model is the Gemini model name.
	Model string
}

// ProviderArk configures the Volcengine Ark backend.
type ProviderArk struct {
	// APIKey is read from ARK_API_KEY.
	APIKey string
	// Model is the Ark endpoint ID or model name.
	Model string
	// BaseURL overrides the regional Ark endpoint.
	BaseURL string
}

// SharedTuning holds sampling parameters applied to every backend that
// supports them.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness.
	Temperature float32
}
