// Package ledger implements a bounded, append-only conversation history.
// When the ledger is full, the oldest fifth of the turns is dropped in one
// batch before the next append, so trimming cost is amortized over many
// appends.
package ledger

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/memory"
)

const (
	// DefaultMaxSize is used when New is given a non-positive size.
	DefaultMaxSize = 100

	// NoHistory is what Formatted returns for an empty ledger.
	NoHistory = "No conversation history."

	evictFraction = 5 // 1/5 = 20%
)

// Ledger is a size-bounded conversation history. It is safe for concurrent
// use; turns are stored in the order Append is called.
type Ledger struct {
	mu      sync.RWMutex
	turns   []memory.Turn
	maxSize int
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger enables debug logging of batch evictions.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New returns an empty Ledger holding at most maxSize turns.
func New(maxSize int, opts ...Option) *Ledger {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	l := &Ledger{
		turns:   make([]memory.Turn, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ensure Ledger implements memory.Provider at compile time.
var _ memory.Provider = (*Ledger)(nil)

// MaxSize returns the configured bound.
func (l *Ledger) MaxSize() int {
	return l.maxSize
}

// Append records a turn. Only user and assistant roles are accepted. A full
// ledger first drops its oldest 20% (at least one turn).
func (l *Ledger) Append(ctx context.Context, role ai.MessageRole, content []ai.ContentPart) error {
	if role != ai.RoleUser && role != ai.RoleAssistant {
		return ai.NewValidationError("unsupported history role %q", role)
	}

	turn := memory.Turn{Role: role, Content: slices.Clone(content), Timestamp: l.now()}

	l.mu.Lock()
	evicted := 0
	if len(l.turns) >= l.maxSize {
		evicted = max(l.maxSize/evictFraction, 1)
		l.turns = slices.Delete(l.turns, 0, evicted)
	}
	l.turns = append(l.turns, turn)
	total := len(l.turns)
	l.mu.Unlock()

	if evicted > 0 && l.logger != nil {
		l.logger.DebugContext(ctx, "conversation history trimmed",
			slog.Int("evicted", evicted),
			slog.Int("total", total),
		)
	}
	return nil
}

// Snapshot returns a deep copy of the turns; mutating it never affects the ledger.
func (l *Ledger) Snapshot() []memory.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]memory.Turn, len(l.turns))
	for i, turn := range l.turns {
		out[i] = copyTurn(turn)
	}
	return out
}

// Formatted renders one "role: content" line per turn, or NoHistory.
func (l *Ledger) Formatted() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.turns) == 0 {
		return NoHistory
	}

	lines := make([]string, 0, len(l.turns))
	for _, turn := range l.turns {
		lines = append(lines, string(turn.Role)+": "+renderContent(turn.Content))
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of stored turns.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.turns)
}

// Last returns a copy of the most recent turn, or nil.
func (l *Ledger) Last() *memory.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.turns) == 0 {
		return nil
	}
	last := copyTurn(l.turns[len(l.turns)-1])
	return &last
}

// Clear removes every turn, keeping the allocated capacity.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = l.turns[:0]
}

func copyTurn(turn memory.Turn) memory.Turn {
	copied := turn
	copied.Content = make([]ai.ContentPart, len(turn.Content))
	for i, part := range turn.Content {
		copied.Content[i] = part
		if part.Image != nil {
			image := *part.Image
			copied.Content[i].Image = &image
		}
	}
	return copied
}

// renderContent joins text parts with spaces and marks images.
func renderContent(parts []ai.ContentPart) string {
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case ai.PartImage:
			rendered = append(rendered, "[image]")
		default:
			if part.Text != "" {
				rendered = append(rendered, part.Text)
			}
		}
	}
	return strings.Join(rendered, " ")
}
