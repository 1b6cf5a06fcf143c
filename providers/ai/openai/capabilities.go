package openai

import "strings"

// Host identifies the flavor of OpenAI-compatible endpoint.
type Host string

const (
	HostOpenAI     Host = "openai"
	HostAzure      Host = "azure"
	HostOpenRouter Host = "openrouter"
	HostOllama     Host = "ollama"  // Ollama's /v1 compatibility layer
	HostGeneric    Host = "generic" // any other compatible server
)

// Capabilities are the per-host wire differences the dialect cares about.
type Capabilities struct {
	Host Host
	// AuthHeader carries the API key; Azure uses "api-key", everybody else
	// "Authorization: Bearer".
	AuthHeader string
	// MaxCompletionTokens sends max_completion_tokens instead of the legacy
	// max_tokens field.
	MaxCompletionTokens bool
	SupportsVision      bool
}

// detectCapabilities infers capabilities from baseURL.
func detectCapabilities(baseURL string) Capabilities {
	baseURL = strings.ToLower(baseURL)

	switch {
	case strings.Contains(baseURL, "api.openai.com"):
		return Capabilities{Host: HostOpenAI, AuthHeader: "Authorization", MaxCompletionTokens: true, SupportsVision: true}
	case strings.Contains(baseURL, "azure.com") || strings.Contains(baseURL, "openai.azure"):
		return Capabilities{Host: HostAzure, AuthHeader: "api-key", SupportsVision: true}
	case strings.Contains(baseURL, "openrouter.ai"):
		return Capabilities{Host: HostOpenRouter, AuthHeader: "Authorization", SupportsVision: true}
	case strings.Contains(baseURL, "localhost:11434") || strings.Contains(baseURL, "127.0.0.1:11434"):
		return Capabilities{Host: HostOllama, AuthHeader: "Authorization", SupportsVision: true}
	}

	return Capabilities{Host: HostGeneric, AuthHeader: "Authorization"}
}
