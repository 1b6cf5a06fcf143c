package httpstyle

import "github.com/leofalp/aibridge/providers/ai"

// Dialect describes one backend's HTTP API.
type Dialect interface {
	// Name is the provider name used in responses and errors.
	Name() string
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL() string
	// ChatPath and ModelsPath are appended to the base URL.
	ChatPath() string
	ModelsPath() string
	// BuildBody returns the JSON-serializable request body.
	BuildBody(request ai.ChatRequest, stream bool) (any, error)
	// Headers returns authentication and versioning headers for apiKey.
	Headers(apiKey string) map[string]string
	// ParseModels extracts model identifiers from a models-endpoint answer.
	ParseModels(body []byte) ([]string, error)
}
