package format

import (
	"errors"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aibridge/providers/ai"
)

// DefaultMaxPayloadBytes bounds the total text and image-reference size of a
// formatted conversation.
const DefaultMaxPayloadBytes = 8 * 1024 * 1024

// MessageFormatter turns caller messages into the shape providers receive.
// Failures must be validation errors.
type MessageFormatter interface {
	FormatMessages(messages []ai.Message) ([]ai.Message, error)
}

// Formatter is the default MessageFormatter.
type Formatter struct {
	maxPayloadBytes int
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithMaxPayloadBytes overrides DefaultMaxPayloadBytes.
func WithMaxPayloadBytes(n int) FormatterOption {
	return func(f *Formatter) {
		if n > 0 {
			f.maxPayloadBytes = n
		}
	}
}

// NewFormatter returns the default formatter.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{maxPayloadBytes: DefaultMaxPayloadBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ensure Formatter implements MessageFormatter at compile time.
var _ MessageFormatter = (*Formatter)(nil)

// FormatMessages returns new messages whose content lives entirely in Parts.
// Blank text parts are dropped and HTML parts become Markdown text.
func (f *Formatter) FormatMessages(messages []ai.Message) ([]ai.Message, error) {
	if len(messages) == 0 {
		return nil, ai.NewValidationError("at least one message is required")
	}

	size := 0
	formatted := make([]ai.Message, 0, len(messages))
	for i, message := range messages {
		switch message.Role {
		case ai.RoleSystem, ai.RoleUser, ai.RoleAssistant:
		default:
			return nil, ai.NewValidationError("message %d: unsupported role %q", i, message.Role)
		}

		parts := make([]ai.ContentPart, 0, len(message.Parts)+1)
		for _, part := range message.AllParts() {
			normalized, keep, err := formatPart(part)
			if err != nil {
				return nil, ai.NewValidationError("message %d: %s", i, err.Error())
			}
			if !keep {
				continue
			}
			size += len(normalized.Text)
			if normalized.Image != nil {
				size += len(normalized.Image.URL)
			}
			parts = append(parts, normalized)
		}

		if len(parts) == 0 {
			return nil, ai.NewValidationError("message %d: empty content", i)
		}
		formatted = append(formatted, ai.Message{Role: message.Role, Parts: parts})
	}

	if size > f.maxPayloadBytes {
		return nil, ai.NewValidationError("payload of %d bytes exceeds the %d byte limit", size, f.maxPayloadBytes)
	}
	return formatted, nil
}

func formatPart(part ai.ContentPart) (ai.ContentPart, bool, error) {
	switch part.Type {
	case ai.PartText, "":
		if strings.TrimSpace(part.Text) == "" {
			return part, false, nil
		}
		return ai.TextPart(part.Text), true, nil

	case ai.PartHTML:
		markdown, err := htmltomarkdown.ConvertString(part.Text)
		if err != nil {
			return part, false, fmt.Errorf("html conversion failed: %w", err)
		}
		markdown = strings.TrimSpace(markdown)
		if markdown == "" {
			return part, false, nil
		}
		return ai.TextPart(markdown), true, nil

	case ai.PartImage:
		if part.Image == nil || strings.TrimSpace(part.Image.URL) == "" {
			return part, false, errors.New("image part without a reference")
		}
		image := *part.Image
		return ai.ContentPart{Type: ai.PartImage, Image: &image}, true, nil
	}

	return part, false, fmt.Errorf("unsupported part type %q", part.Type)
}
