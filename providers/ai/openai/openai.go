package openai

import (
	"encoding/json"
	"fmt"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/ai/httpstyle"
)

const (
	Name           = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"

	chatCompletionsEndpoint = "/chat/completions"
	modelsEndpoint          = "/models"
)

// Dialect speaks the chat completions wire format.
type Dialect struct {
	capabilities Capabilities
}

// NewDialect returns the dialect for baseURL; an empty baseURL means
// api.openai.com.
func NewDialect(baseURL string) Dialect {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Dialect{capabilities: detectCapabilities(baseURL)}
}

// WithCapabilities overrides detection for non-standard hosts.
func (d Dialect) WithCapabilities(capabilities Capabilities) Dialect {
	d.capabilities = capabilities
	return d
}

// Capabilities returns the detected capabilities.
func (d Dialect) Capabilities() Capabilities {
	return d.capabilities
}

// Ensure Dialect implements httpstyle.Dialect at compile time.
var _ httpstyle.Dialect = Dialect{}

// Name returns "openai".
func (d Dialect) Name() string { return Name }

// DefaultBaseURL returns the public OpenAI API root.
func (d Dialect) DefaultBaseURL() string { return DefaultBaseURL }

// ChatPath returns the chat completions endpoint.
func (d Dialect) ChatPath() string { return chatCompletionsEndpoint }

// ModelsPath returns the model listing endpoint.
func (d Dialect) ModelsPath() string { return modelsEndpoint }

// Headers returns the auth header for the detected host.
func (d Dialect) Headers(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	if d.capabilities.AuthHeader == "api-key" {
		return map[string]string{"api-key": apiKey}
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// BuildBody builds a chat completions request body.
func (d Dialect) BuildBody(request ai.ChatRequest, stream bool) (any, error) {
	body := chatCompletionRequest{
		Model:       request.Model,
		Messages:    make([]chatMessage, 0, len(request.Messages)),
		Temperature: request.Temperature,
		Stream:      stream,
	}
	if d.capabilities.MaxCompletionTokens {
		body.MaxCompletionTokens = request.MaxTokens
	} else {
		body.MaxTokens = request.MaxTokens
	}

	for _, message := range request.Messages {
		if !message.HasImages() {
			body.Messages = append(body.Messages, chatMessage{Role: string(message.Role), Content: message.Text()})
			continue
		}
		if !d.capabilities.SupportsVision {
			return nil, ai.NewValidationError("host %s does not accept images", d.capabilities.Host)
		}
		body.Messages = append(body.Messages, chatMessage{Role: string(message.Role), Content: contentParts(message)})
	}
	return body, nil
}

// ParseModels decodes a /models listing.
func (d Dialect) ParseModels(data []byte) ([]string, error) {
	var list modelList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error decoding model list: %w", err)
	}
	models := make([]string, 0, len(list.Data))
	for _, model := range list.Data {
		if model.ID != "" {
			models = append(models, model.ID)
		}
	}
	return models, nil
}

func contentParts(message ai.Message) []contentPart {
	parts := make([]contentPart, 0, len(message.Parts)+1)
	for _, part := range message.AllParts() {
		switch {
		case part.Type == ai.PartText && part.Text != "":
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case part.Type == ai.PartImage && part.Image != nil:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &contentPartImage{URL: part.Image.URL}})
		}
	}
	return parts
}
