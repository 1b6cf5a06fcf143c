package ai

import (
	"strings"
	"time"
)

/*
	##### CALLER INPUT #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
)

// PartType identifies the payload carried by a ContentPart.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
	PartHTML  PartType = "html" // converted to Markdown text by the formatter
)

// ImageURL references an image either remotely (http/https) or inline as a
// base64 data URL. MIMEType is filled in once the reference has been processed.
type ImageURL struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type  PartType  `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *ImageURL `json:"image_url,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds an image content part from a URL, data URL or file path.
func ImagePart(ref string) ContentPart {
	return ContentPart{Type: PartImage, Image: &ImageURL{URL: ref}}
}

// Message represents a single message in a conversation. Content is a
// shorthand for a message made of a single text part; when both are set,
// Content comes first.
type Message struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// AllParts returns Content (as a text part, when non-empty) followed by Parts.
func (m Message) AllParts() []ContentPart {
	parts := make([]ContentPart, 0, len(m.Parts)+1)
	if m.Content != "" {
		parts = append(parts, TextPart(m.Content))
	}
	return append(parts, m.Parts...)
}

// Text joins every text part of the message with newlines.
func (m Message) Text() string {
	var texts []string
	for _, part := range m.AllParts() {
		if part.Type == PartText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Images returns the image references carried by the message.
func (m Message) Images() []ImageURL {
	var images []ImageURL
	for _, part := range m.Parts {
		if part.Type == PartImage && part.Image != nil {
			images = append(images, *part.Image)
		}
	}
	return images
}

// HasImages reports whether at least one image part is present.
func (m Message) HasImages() bool {
	return len(m.Images()) > 0
}

/*
	##### OPTIONS #####
*/

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
)

// Options holds the per-call generation settings. Nil pointers and an empty
// Model mean "not set" so that caller overrides can be merged over defaults.
type Options struct {
	Model       string   `json:"model,omitempty" yaml:"model"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
}

// Merge returns o with every field set in override replacing its counterpart.
func (o Options) Merge(override Options) Options {
	merged := o
	if override.Model != "" {
		merged.Model = override.Model
	}
	if override.Temperature != nil {
		t := *override.Temperature
		merged.Temperature = &t
	}
	if override.MaxTokens != nil {
		n := *override.MaxTokens
		merged.MaxTokens = &n
	}
	return merged
}

// Clamped returns a copy with temperature limited to [0,2] and max tokens >= 1.
func (o Options) Clamped() Options {
	clamped := o
	if o.Temperature != nil {
		t := min(max(*o.Temperature, MinTemperature), MaxTemperature)
		clamped.Temperature = &t
	}
	if o.MaxTokens != nil {
		n := max(*o.MaxTokens, MinMaxTokens)
		clamped.MaxTokens = &n
	}
	return clamped
}

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is the fully resolved request handed to a Provider: messages are
// already formatted and options merged and clamped.
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is the normalized result of a call. It is never mutated after
// being returned to the caller.
type Response struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Content      string    `json:"content"`
	Usage        Usage     `json:"usage"`
	FinishReason string    `json:"finish_reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// Operation names used in error context and logs.
const (
	OpChat         = "chat"
	OpVision       = "vision"
	OpStreamChat   = "streamChat"
	OpStreamVision = "streamVision"
	OpListModels   = "listModels"
	OpIsAvailable  = "isAvailable"
)
