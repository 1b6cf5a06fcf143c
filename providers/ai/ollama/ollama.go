// Package ollama is the HTTP dialect for a local or remote Ollama server's
// native API (/api/chat, /api/tags). Images must be inline: Ollama takes raw
// base64 strings, so data URLs are unwrapped and remote URLs are rejected.
package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/ai/httpstyle"
)

const (
	Name           = "ollama"
	DefaultBaseURL = "http://localhost:11434"

	chatEndpoint = "/api/chat"
	tagsEndpoint = "/api/tags"
)

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *modelSettings `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type modelSettings struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type tagList struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Dialect speaks Ollama's native chat API.
type Dialect struct{}

// Ensure Dialect implements httpstyle.Dialect at compile time.
var _ httpstyle.Dialect = Dialect{}

// Name returns "ollama".
func (Dialect) Name() string { return Name }

// DefaultBaseURL returns the local Ollama server.
func (Dialect) DefaultBaseURL() string { return DefaultBaseURL }

// ChatPath returns the native chat endpoint.
func (Dialect) ChatPath() string { return chatEndpoint }

// ModelsPath returns the tag listing endpoint.
func (Dialect) ModelsPath() string { return tagsEndpoint }

// Headers sends a bearer token only when one is configured, for servers
// behind an authenticating proxy.
func (Dialect) Headers(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// BuildBody builds an /api/chat body with images inlined as raw base64.
func (Dialect) BuildBody(request ai.ChatRequest, stream bool) (any, error) {
	body := chatRequest{
		Model:    request.Model,
		Messages: make([]chatMessage, 0, len(request.Messages)),
		Stream:   stream,
	}
	if request.Temperature != nil || request.MaxTokens != nil {
		body.Options = &modelSettings{Temperature: request.Temperature, NumPredict: request.MaxTokens}
	}

	for _, message := range request.Messages {
		wire := chatMessage{Role: string(message.Role), Content: message.Text()}
		for _, image := range message.Images() {
			encoded, err := inlineImage(image.URL)
			if err != nil {
				return nil, err
			}
			wire.Images = append(wire.Images, encoded)
		}
		body.Messages = append(body.Messages, wire)
	}
	return body, nil
}

// ParseModels decodes an /api/tags listing.
func (Dialect) ParseModels(data []byte) ([]string, error) {
	var tags tagList
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("error decoding tag list: %w", err)
	}
	models := make([]string, 0, len(tags.Models))
	for _, tag := range tags.Models {
		name := tag.Name
		if name == "" {
			name = tag.Model
		}
		if name != "" {
			models = append(models, name)
		}
	}
	return models, nil
}

// inlineImage returns the base64 payload of a data URL.
func inlineImage(ref string) (string, error) {
	if !strings.HasPrefix(ref, "data:") {
		return "", ai.NewValidationError("ollama accepts inline images only, got %q", ref)
	}
	_, payload, ok := strings.Cut(ref, ",")
	if !ok || payload == "" {
		return "", ai.NewValidationError("malformed data URL")
	}
	return payload, nil
}
