package memory

import (
	"context"
	"time"

	"github.com/leofalp/aibridge/providers/ai"
)

// Turn is one exchanged message recorded in a conversation history.
type Turn struct {
	Role      ai.MessageRole   `json:"role"`
	Content   []ai.ContentPart `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
}

// Provider is the conversation history contract used by the dispatch core.
type Provider interface {
	// Append records a turn stamped with the current time.
	Append(ctx context.Context, role ai.MessageRole, content []ai.ContentPart) error
	// Snapshot returns an independent copy of every stored turn, oldest first.
	Snapshot() []Turn
	// Formatted renders the history as "role: content" lines.
	Formatted() string
	// Len returns the number of stored turns.
	Len() int
	// Last returns the most recent turn, or nil when empty.
	Last() *Turn
	// Clear removes every turn.
	Clear()
}
