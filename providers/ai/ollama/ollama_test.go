package ollama

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

// TestDialect_BuildBody verifies messages, images and model options.
func TestDialect_BuildBody(t *testing.T) {
	body, err := Dialect{}.BuildBody(ai.ChatRequest{
		Model:       "llava",
		Temperature: utils.Ptr(0.2),
		MaxTokens:   utils.Ptr(32),
		Messages: []ai.Message{{
			Role:  ai.RoleUser,
			Parts: []ai.ContentPart{ai.TextPart("what is this?"), ai.ImagePart("data:image/png;base64,QUJD")},
		}},
	}, false)
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}

	data, _ := json.Marshal(body)
	want := `{"model":"llava","messages":[{"role":"user","content":"what is this?","images":["QUJD"]}],"stream":false,"options":{"temperature":0.2,"num_predict":32}}`
	if string(data) != want {
		t.Errorf("body = %s\nwant  %s", data, want)
	}
}

// TestDialect_BuildBodyOmitsEmptyOptions verifies options are left out when unset.
func TestDialect_BuildBodyOmitsEmptyOptions(t *testing.T) {
	body, err := Dialect{}.BuildBody(ai.ChatRequest{
		Model:    "llama3",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(body)
	if string(data) != `{"model":"llama3","messages":[{"role":"user","content":"hi"}],"stream":true}` {
		t.Errorf("unexpected body %s", data)
	}
}

// TestDialect_RejectsRemoteImages verifies that only inline images are sent.
func TestDialect_RejectsRemoteImages(t *testing.T) {
	_, err := Dialect{}.BuildBody(ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.ImagePart("https://example.com/a.png")}}},
	}, false)
	if !errors.Is(err, ai.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// TestDialect_ParseModels verifies tag names are listed.
func TestDialect_ParseModels(t *testing.T) {
	models, err := Dialect{}.ParseModels([]byte(`{"models":[{"name":"llama3:latest"},{"model":"llava:7b"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0] != "llama3:latest" || models[1] != "llava:7b" {
		t.Errorf("unexpected models %v", models)
	}
}
