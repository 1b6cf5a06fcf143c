package sdkstyle

import (
	"context"
	"errors"
	"testing"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

type sdkMessage struct {
	Model      string `json:"model"`
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type fakeClient struct {
	calls  int
	params Params
	answer any
	err    error
}

func (f *fakeClient) CreateMessage(_ context.Context, params Params) (any, error) {
	f.calls++
	f.params = params
	return f.answer, f.err
}

type listingClient struct {
	fakeClient
	listCalls int
	listErr   error
}

func (l *listingClient) ListModels(context.Context) ([]string, error) {
	l.listCalls++
	return []string{"m1", "m2"}, l.listErr
}

func completionContent(payload map[string]any) (string, bool) {
	text, ok := payload["completion"].(string)
	return text, ok
}

// TestProvider_ChatUsesHooks verifies an opaque struct answer is normalized
// through the content and finish hooks.
func TestProvider_ChatUsesHooks(t *testing.T) {
	answer := sdkMessage{Model: "claude-x", Completion: "hi", StopReason: "end_turn"}
	answer.Usage.InputTokens = 4
	answer.Usage.OutputTokens = 2
	client := &fakeClient{answer: &answer}

	provider := New("vendor", client,
		WithContentFunc(completionContent),
		WithFinishFunc(func(reason string) string {
			if reason == "end_turn" {
				return "stop"
			}
			return reason
		}),
	)

	res, err := provider.Chat(context.Background(), ai.ChatRequest{
		Model:    "requested",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "hi" || res.Model != "claude-x" || res.FinishReason != "stop" || res.Provider != "vendor" {
		t.Errorf("unexpected response %+v", res)
	}
	if res.Usage.Total() != 6 {
		t.Errorf("unexpected usage %+v", res.Usage)
	}
	if provider.Style() != ai.StyleSDK {
		t.Error("expected sdk style")
	}
}

// TestProvider_ErrorsAreNotRetried verifies an SDK failure surfaces as a
// provider error after exactly one call, even when it looks transient.
func TestProvider_ErrorsAreNotRetried(t *testing.T) {
	cause := errors.New("connection reset, timeout")
	client := &fakeClient{err: cause}
	provider := New("vendor", client)

	_, err := provider.Vision(context.Background(), ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "x"}}})
	if !errors.Is(err, ai.ErrProvider) || !errors.Is(err, cause) {
		t.Fatalf("unexpected error %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 call, got %d", client.calls)
	}
}

// TestProvider_EmptyAnswer verifies a nil answer is a provider error.
func TestProvider_EmptyAnswer(t *testing.T) {
	provider := New("vendor", &fakeClient{})

	_, err := provider.Chat(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

// TestProvider_StreamChatSingleEvent verifies streaming wraps the synchronous
// answer in one partial and one complete event.
func TestProvider_StreamChatSingleEvent(t *testing.T) {
	provider := New("vendor", &fakeClient{answer: map[string]any{"content": "whole answer"}})

	stream, err := provider.StreamVision(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamVision: %v", err)
	}

	var types []ai.StreamEventType
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatal(err)
		}
		types = append(types, event.Type)
		if event.Type == ai.StreamEventComplete && event.Response.Content != "whole answer" {
			t.Errorf("unexpected response %+v", event.Response)
		}
	}
	if len(types) != 2 || types[0] != ai.StreamEventPartial || types[1] != ai.StreamEventComplete {
		t.Errorf("unexpected events %v", types)
	}
}

// TestBuildParams verifies system messages are lifted and max tokens defaulted.
func TestBuildParams(t *testing.T) {
	params := BuildParams(ai.ChatRequest{
		Model:       "m",
		Temperature: utils.Ptr(0.3),
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "rule one"},
			{Role: ai.RoleUser, Content: "q"},
			{Role: ai.RoleSystem, Content: "rule two"},
		},
	})

	if params.System != "rule one\n\nrule two" {
		t.Errorf("System = %q", params.System)
	}
	if len(params.Messages) != 1 || params.Messages[0].Role != ai.RoleUser {
		t.Errorf("Messages = %+v", params.Messages)
	}
	if params.MaxTokens != DefaultMaxTokens || *params.Temperature != 0.3 {
		t.Errorf("unexpected params %+v", params)
	}

	if got := BuildParams(ai.ChatRequest{MaxTokens: utils.Ptr(7)}).MaxTokens; got != 7 {
		t.Errorf("MaxTokens = %d", got)
	}
}

// TestProvider_ListModels verifies listing support, caching and availability.
func TestProvider_ListModels(t *testing.T) {
	client := &listingClient{}
	provider := New("vendor", client, WithStore(cache.NewStore()))

	for range 2 {
		models, err := provider.ListModels(context.Background())
		if err != nil || len(models) != 2 {
			t.Fatalf("ListModels = %v, %v", models, err)
		}
	}
	if client.listCalls != 1 {
		t.Errorf("expected cached list, got %d calls", client.listCalls)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Error("expected available")
	}

	client.listErr = errors.New("unauthorized")
	if New("other", client).IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
}

// TestProvider_ListModelsUnsupported verifies clients without listing report it.
func TestProvider_ListModelsUnsupported(t *testing.T) {
	provider := New("vendor", &fakeClient{})

	_, err := provider.ListModels(context.Background())
	if !errors.Is(err, ErrModelsUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Error("configured client without probes is assumed available")
	}
}
