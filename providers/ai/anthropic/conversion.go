package anthropic

import (
	"strings"

	"github.com/leofalp/aibridge/core/normalize"
	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/ai/sdkstyle"
)

// toRequest converts neutral params into the Messages API body. Anthropic
// requires alternating turns, so consecutive messages of the same role are
// merged into one message with several blocks.
func toRequest(params sdkstyle.Params, capabilities Capabilities) (messagesRequest, error) {
	request := messagesRequest{
		Model:       params.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}
	if request.MaxTokens <= 0 {
		request.MaxTokens = sdkstyle.DefaultMaxTokens
	}

	if params.System != "" {
		if capabilities.PromptCaching {
			request.System = []contentBlock{{Type: "text", Text: params.System, CacheControl: &cacheControl{Type: "ephemeral"}}}
		} else {
			request.System = params.System
		}
	}

	for _, message := range params.Messages {
		role := string(message.Role)
		if message.Role != ai.RoleUser && message.Role != ai.RoleAssistant {
			return messagesRequest{}, ai.NewValidationError("anthropic does not accept role %q in messages", message.Role)
		}

		blocks, err := toBlocks(message)
		if err != nil {
			return messagesRequest{}, err
		}
		if len(blocks) == 0 {
			continue
		}

		if last := len(request.Messages) - 1; last >= 0 && request.Messages[last].Role == role {
			request.Messages[last].Content = append(request.Messages[last].Content, blocks...)
			continue
		}
		request.Messages = append(request.Messages, messageParam{Role: role, Content: blocks})
	}

	if len(request.Messages) == 0 {
		return messagesRequest{}, ai.NewValidationError("anthropic requires at least one user or assistant message")
	}
	return request, nil
}

func toBlocks(message ai.Message) ([]contentBlock, error) {
	blocks := make([]contentBlock, 0, len(message.Parts)+1)
	for _, part := range message.AllParts() {
		switch part.Type {
		case ai.PartText:
			if part.Text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: part.Text})
			}
		case ai.PartImage:
			if part.Image == nil {
				continue
			}
			source, err := toImageSource(*part.Image)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, contentBlock{Type: "image", Source: source})
		}
	}
	return blocks, nil
}

// toImageSource maps a data URL to a base64 source and anything else to a
// url source.
func toImageSource(image ai.ImageURL) (*imageSource, error) {
	if !strings.HasPrefix(image.URL, "data:") {
		return &imageSource{Type: "url", URL: image.URL}, nil
	}

	header, data, ok := strings.Cut(strings.TrimPrefix(image.URL, "data:"), ",")
	if !ok || data == "" {
		return nil, ai.NewValidationError("malformed data URL")
	}
	mediaType, _, _ := strings.Cut(header, ";")
	if mediaType == "" {
		mediaType = image.MIMEType
	}
	return &imageSource{Type: "base64", MediaType: mediaType, Data: data}, nil
}

// FinishReason maps Anthropic stop reasons onto the shared vocabulary.
func FinishReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "refusal":
		return "content_filter"
	}
	return reason
}

// Content reads the text blocks of a Messages API answer, or the completion
// field of the legacy text completions API.
func Content(payload map[string]any) (string, bool) {
	if blocks, ok := payload["content"].([]any); ok {
		return normalize.TextBlocks(blocks)
	}
	if completion, ok := payload["completion"].(string); ok {
		return completion, true
	}
	return "", false
}
