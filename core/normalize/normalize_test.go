package normalize

import (
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("invalid fixture %s: %v", raw, err)
	}
	return payload
}

// TestExtractContent_Precedence verifies the documented field precedence.
func TestExtractContent_Precedence(t *testing.T) {
	sdk := func(payload map[string]any) (string, bool) {
		blocks, ok := payload["content"].([]any)
		if !ok {
			return "", false
		}
		return TextBlocks(blocks)
	}

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"message beats content", `{"message":{"content":"A"},"content":"B"}`, "A"},
		{"message beats response", `{"message":{"content":"A"},"response":"C"}`, "A"},
		{"openai choice message", `{"choices":[{"message":{"content":"choice"}}],"content":"B"}`, "choice"},
		{"openai choice delta", `{"choices":[{"delta":{"content":"delta"}}]}`, "delta"},
		{"content beats response", `{"content":"B","response":"C"}`, "B"},
		{"response only", `{"response":"C","done":true}`, "C"},
		{"sdk blocks", `{"content":[{"type":"text","text":"Hel"},{"type":"tool_use"},{"type":"text","text":"lo"}]}`, "Hello"},
		{"message content blocks", `{"message":{"content":[{"type":"text","text":"parts"}]}}`, "parts"},
		{"nothing", `{"id":"x"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractContent(decode(t, tt.payload), sdk); got != tt.want {
				t.Errorf("ExtractContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestExtractContent_NilPayload verifies that nil never panics.
func TestExtractContent_NilPayload(t *testing.T) {
	if got := ExtractContent(nil, nil); got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
}

// TestExtractUsage_NamingConventions verifies both token naming conventions
// and the zero fallback.
func TestExtractUsage_NamingConventions(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantInput  int
		wantOutput int
	}{
		{"openai", `{"usage":{"prompt_tokens":12,"completion_tokens":7,"total_tokens":19}}`, 12, 7},
		{"anthropic", `{"usage":{"input_tokens":3,"output_tokens":4}}`, 3, 4},
		{"ollama", `{"prompt_eval_count":26,"eval_count":298,"done":true}`, 26, 298},
		{"missing", `{"content":"x"}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := ExtractUsage(decode(t, tt.payload))
			if usage.InputTokens != tt.wantInput || usage.OutputTokens != tt.wantOutput {
				t.Errorf("ExtractUsage() = %+v, want input=%d output=%d", usage, tt.wantInput, tt.wantOutput)
			}
		})
	}
}

// TestNormalize_DefaultsAndMapping verifies model fallback, the "stop" default
// and provider finish-reason mapping.
func TestNormalize_DefaultsAndMapping(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	plain := New("ollama", nil, nil)
	plain.now = func() time.Time { return fixed }
	response := plain.Normalize(decode(t, `{"message":{"content":"hi"}}`), "llama3")

	if response.Provider != "ollama" || response.Model != "llama3" {
		t.Errorf("unexpected provider/model: %+v", response)
	}
	if response.FinishReason != DefaultFinishReason {
		t.Errorf("expected default finish reason, got %q", response.FinishReason)
	}
	if !response.Timestamp.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, response.Timestamp)
	}

	mapped := New("anthropic", nil, func(reason string) string {
		if reason == "end_turn" {
			return "stop"
		}
		return reason
	})
	response = mapped.Normalize(decode(t, `{"model":"claude-x","stop_reason":"end_turn","content":"ok"}`), "requested")
	if response.Model != "claude-x" {
		t.Errorf("payload model should win, got %q", response.Model)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected mapped finish reason, got %q", response.FinishReason)
	}

	response = plain.Normalize(decode(t, `{"choices":[{"message":{"content":"x"},"finish_reason":"length"}]}`), "m")
	if response.FinishReason != "length" {
		t.Errorf("expected choice finish reason, got %q", response.FinishReason)
	}
}

// TestToPayload verifies conversion of opaque SDK values.
func TestToPayload(t *testing.T) {
	type sdkMessage struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	message := sdkMessage{Model: "m"}
	message.Content = append(message.Content, struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "text", Text: "hey"})

	payload := ToPayload(message)
	if payload["model"] != "m" {
		t.Fatalf("expected model in payload, got %v", payload)
	}
	if ToPayload([]byte("not json")) != nil {
		t.Error("expected nil payload for invalid JSON")
	}
	if ToPayload(nil) != nil {
		t.Error("expected nil payload for nil")
	}
	if ToPayload(`{"a":1}`)["a"] != float64(1) {
		t.Error("expected string JSON to decode")
	}
}
