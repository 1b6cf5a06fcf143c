// Package normalize extracts content, usage and finish reason from
// heterogeneous backend payloads decoded as generic JSON objects.
//
// Content precedence:
//
//  1. nested message content: message.content, choices[0].message.content,
//     choices[0].delta.content
//  2. top-level content
//  3. top-level response
//  4. the provider-specific ContentFunc (SDK shapes)
//
// Nothing in this package returns an error: a payload with none of the known
// fields normalizes to empty content and zero usage.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/leofalp/aibridge/providers/ai"
)

// DefaultFinishReason is reported for backends that do not send one.
const DefaultFinishReason = "stop"

// ContentFunc extracts content from a provider-specific payload shape. It is
// consulted only after the generic fields came up empty.
type ContentFunc func(payload map[string]any) (string, bool)

// FinishFunc maps a backend finish reason onto the canonical vocabulary.
type FinishFunc func(reason string) string

// Normalizer turns raw payloads into ai.Response values for one provider.
type Normalizer struct {
	Provider string
	Content  ContentFunc
	Finish   FinishFunc
	now      func() time.Time
}

// New returns a Normalizer for provider. content and finish may be nil.
func New(provider string, content ContentFunc, finish FinishFunc) *Normalizer {
	return &Normalizer{Provider: provider, Content: content, Finish: finish, now: time.Now}
}

// Normalize builds the canonical response for payload. model is used when the
// payload does not name one.
func (n *Normalizer) Normalize(payload map[string]any, model string) *ai.Response {
	return n.NormalizeContent(payload, ExtractContent(payload, n.Content), model)
}

// NormalizeContent is Normalize with content already known, as produced by the
// stream reconstructor. Usage, model and finish reason still come from payload.
func (n *Normalizer) NormalizeContent(payload map[string]any, content, model string) *ai.Response {
	if payloadModel := stringField(payload, "model"); payloadModel != "" {
		model = payloadModel
	}

	finish := ExtractFinishReason(payload)
	if n.Finish != nil {
		finish = n.Finish(finish)
	}
	if finish == "" {
		finish = DefaultFinishReason
	}

	now := time.Now
	if n.now != nil {
		now = n.now
	}

	return &ai.Response{
		Provider:     n.Provider,
		Model:        model,
		Content:      content,
		Usage:        ExtractUsage(payload),
		FinishReason: finish,
		Timestamp:    now(),
	}
}

// ExtractContent applies the content precedence to payload.
func ExtractContent(payload map[string]any, sdk ContentFunc) string {
	if payload == nil {
		return ""
	}

	if message, ok := payload["message"].(map[string]any); ok {
		if text, ok := contentValue(message["content"]); ok {
			return text
		}
	}

	if choice := firstChoice(payload); choice != nil {
		for _, key := range []string{"message", "delta"} {
			if nested, ok := choice[key].(map[string]any); ok {
				if text, ok := contentValue(nested["content"]); ok {
					return text
				}
			}
		}
	}

	if text, ok := payload["content"].(string); ok {
		return text
	}

	if text, ok := payload["response"].(string); ok {
		return text
	}

	if sdk != nil {
		if text, ok := sdk(payload); ok {
			return text
		}
	}

	return ""
}

// ExtractUsage reads token counts under either naming convention, falling
// back to zero usage.
func ExtractUsage(payload map[string]any) ai.Usage {
	if payload == nil {
		return ai.Usage{}
	}

	if usage, ok := payload["usage"].(map[string]any); ok {
		if input, output, ok := pair(usage, "prompt_tokens", "completion_tokens"); ok {
			return ai.Usage{InputTokens: input, OutputTokens: output}
		}
		if input, output, ok := pair(usage, "input_tokens", "output_tokens"); ok {
			return ai.Usage{InputTokens: input, OutputTokens: output}
		}
	}

	if input, output, ok := pair(payload, "prompt_eval_count", "eval_count"); ok {
		return ai.Usage{InputTokens: input, OutputTokens: output}
	}

	return ai.Usage{}
}

// ExtractFinishReason returns the first finish reason found, or "".
func ExtractFinishReason(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if choice := firstChoice(payload); choice != nil {
		if reason := stringField(choice, "finish_reason"); reason != "" {
			return reason
		}
	}
	for _, key := range []string{"finish_reason", "stop_reason", "done_reason"} {
		if reason := stringField(payload, key); reason != "" {
			return reason
		}
	}
	return ""
}

// ToPayload converts an opaque value (an SDK response struct, raw JSON bytes
// or an already decoded map) into a generic JSON object. Values that do not
// encode to a JSON object yield nil.
func ToPayload(value any) map[string]any {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		return typed
	case []byte:
		return decodeObject(typed)
	case json.RawMessage:
		return decodeObject(typed)
	case string:
		return decodeObject([]byte(typed))
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return decodeObject(encoded)
}

func decodeObject(data []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	return payload
}

// contentValue accepts a plain string or an array of text blocks.
func contentValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case []any:
		return TextBlocks(typed)
	}
	return "", false
}

// TextBlocks joins the "text" field of every {type:"text"} block.
func TextBlocks(blocks []any) (string, bool) {
	var builder strings.Builder
	found := false
	for _, block := range blocks {
		object, ok := block.(map[string]any)
		if !ok {
			continue
		}
		if blockType := stringField(object, "type"); blockType != "" && blockType != "text" {
			continue
		}
		if text, ok := object["text"].(string); ok {
			builder.WriteString(text)
			found = true
		}
	}
	return builder.String(), found
}

func firstChoice(payload map[string]any) map[string]any {
	choices, ok := payload["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, _ := choices[0].(map[string]any)
	return choice
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}

// pair reads two numeric fields; ok is true when at least one is present.
func pair(object map[string]any, first, second string) (int, int, bool) {
	a, okA := number(object[first])
	b, okB := number(object[second])
	return a, b, okA || okB
}

func number(value any) (int, bool) {
	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case json.Number:
		n, err := typed.Int64()
		return int(n), err == nil
	}
	return 0, false
}
