package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/format"
	"github.com/leofalp/aibridge/providers/memory"
	"github.com/leofalp/aibridge/providers/memory/ledger"
)

// Client dispatches calls to one provider. It is safe for concurrent use;
// concurrent calls share the provider's caches and the ledger.
type Client struct {
	provider    ai.Provider
	formatter   format.MessageFormatter
	images      format.ImageProcessor
	history     memory.Provider
	historySize int
	defaults    ai.Options
	logger      *slog.Logger
	middlewares []MiddlewareConfig

	chat         SendFunc
	vision       SendFunc
	streamChat   StreamFunc
	streamVision StreamFunc

	// recordMu keeps the two turns of one call adjacent in the ledger.
	recordMu sync.Mutex
}

// New builds a Client around provider.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("client: provider is required")
	}

	c := &Client{
		provider:    provider,
		historySize: ledger.DefaultMaxSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, middleware := range c.middlewares {
		if middleware.Send == nil {
			return nil, fmt.Errorf("client: middleware %d has no Send function", i)
		}
	}

	if c.formatter == nil {
		c.formatter = format.NewFormatter()
	}
	if c.images == nil {
		c.images = format.NewImages()
	}
	if c.history == nil {
		c.history = defaultHistory(c.historySize, c.logger)
	}

	c.chat = buildSendChain(provider.Chat, c.middlewares)
	c.vision = buildSendChain(provider.Vision, c.middlewares)
	c.streamChat = buildStreamChain(provider.StreamChat, c.middlewares)
	c.streamVision = buildStreamChain(provider.StreamVision, c.middlewares)
	return c, nil
}

// Provider returns the wrapped provider.
func (c *Client) Provider() ai.Provider {
	return c.provider
}

// History returns the conversation ledger written by calls made WithHistory.
func (c *Client) History() memory.Provider {
	return c.history
}

// Defaults returns the options every call starts from.
func (c *Client) Defaults() ai.Options {
	return c.defaults
}

// Chat sends a text-only conversation. Image parts are rejected.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...CallOption) (*ai.Response, error) {
	return c.send(ctx, ai.OpChat, c.chat, messages, opts)
}

// Vision sends a conversation carrying at least one image.
func (c *Client) Vision(ctx context.Context, messages []ai.Message, opts ...CallOption) (*ai.Response, error) {
	return c.send(ctx, ai.OpVision, c.vision, messages, opts)
}

// StreamChat is the streaming form of Chat. Failures, including validation
// failures, arrive as an error event.
func (c *Client) StreamChat(ctx context.Context, messages []ai.Message, opts ...CallOption) *ai.ChatStream {
	return c.stream(ctx, ai.OpStreamChat, c.streamChat, messages, opts)
}

// StreamVision is the streaming form of Vision.
func (c *Client) StreamVision(ctx context.Context, messages []ai.Message, opts ...CallOption) *ai.ChatStream {
	return c.stream(ctx, ai.OpStreamVision, c.streamVision, messages, opts)
}

// IsAvailable reports whether the provider answers its availability probe.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.provider.IsAvailable(ctx)
}

// ListModels returns the provider's models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.provider.ListModels(ctx)
	if err != nil {
		return nil, ai.WithContext(err, c.provider.Name(), ai.OpListModels)
	}
	return models, nil
}

func (c *Client) send(ctx context.Context, operation string, chain SendFunc, messages []ai.Message, opts []CallOption) (*ai.Response, error) {
	call := newCallConfig(opts)

	request, userTurn, err := c.prepare(ctx, operation, messages, call.options)
	if err != nil {
		return nil, ai.WithContext(err, c.provider.Name(), operation)
	}

	response, err := chain(withOperation(ctx, operation), request)
	if err != nil {
		if call.history {
			c.record(ctx, userTurn, nil)
		}
		return nil, ai.WithContext(err, c.provider.Name(), operation)
	}

	if call.history {
		c.record(ctx, userTurn, response)
	}
	return response, nil
}

func (c *Client) stream(ctx context.Context, operation string, chain StreamFunc, messages []ai.Message, opts []CallOption) *ai.ChatStream {
	call := newCallConfig(opts)
	name := c.provider.Name()

	request, userTurn, err := c.prepare(ctx, operation, messages, call.options)
	if err != nil {
		return ai.NewErrorStream(ai.WithContext(err, name, operation))
	}

	stream, err := chain(withOperation(ctx, operation), request)
	if err != nil {
		if call.history {
			c.record(ctx, userTurn, nil)
		}
		return ai.NewErrorStream(ai.WithContext(err, name, operation))
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var completed *ai.Response
		if call.history {
			defer func() { c.record(ctx, userTurn, completed) }()
		}

		for event, err := range stream.Iter() {
			if err != nil {
				err = ai.WithContext(err, name, operation)
				event.Type = ai.StreamEventError
				event.Error = err.Error()
				yield(event, err)
				return
			}
			if event.Type == ai.StreamEventComplete {
				completed = event.Response
			}
			if !yield(event, nil) {
				return
			}
			if event.Type == ai.StreamEventComplete {
				return
			}
		}
	})
}

// prepare formats messages, enforces the image rules of operation, resolves
// images and merges options. It returns the user turn to record.
func (c *Client) prepare(ctx context.Context, operation string, messages []ai.Message, override ai.Options) (ai.ChatRequest, []ai.ContentPart, error) {
	formatted, err := c.formatter.FormatMessages(messages)
	if err != nil {
		return ai.ChatRequest{}, nil, err
	}

	images := 0
	for _, message := range formatted {
		images += len(message.Images())
	}
	vision := operation == ai.OpVision || operation == ai.OpStreamVision
	switch {
	case vision && images == 0:
		return ai.ChatRequest{}, nil, ai.NewValidationError("%s requires at least one image", operation)
	case !vision && images > 0:
		return ai.ChatRequest{}, nil, ai.NewValidationError("%s does not accept images, use vision", operation)
	}

	if images > 0 {
		if err := c.resolveImages(ctx, formatted); err != nil {
			return ai.ChatRequest{}, nil, err
		}
	}

	merged := c.defaults.Merge(override)
	if merged.Temperature != nil && math.IsNaN(*merged.Temperature) {
		return ai.ChatRequest{}, nil, ai.NewValidationError("temperature must be a number")
	}
	options := merged.Clamped()
	request := ai.ChatRequest{
		Model:       options.Model,
		Messages:    formatted,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
	return request, userTurn(formatted), nil
}

// resolveImages runs every image part through the image processor, writing
// into fresh part slices.
func (c *Client) resolveImages(ctx context.Context, messages []ai.Message) error {
	for i := range messages {
		if !messages[i].HasImages() {
			continue
		}
		parts := slices.Clone(messages[i].Parts)
		for j, part := range parts {
			if part.Type != ai.PartImage || part.Image == nil {
				continue
			}
			processed, err := c.images.ProcessImageURL(ctx, part.Image.URL)
			if err != nil {
				return err
			}
			parts[j].Image = &processed
		}
		messages[i].Parts = parts
	}
	return nil
}

// record appends the user turn and, for a completed call, the assistant turn.
func (c *Client) record(ctx context.Context, user []ai.ContentPart, response *ai.Response) {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()

	if len(user) > 0 {
		if err := c.history.Append(ctx, ai.RoleUser, user); err != nil {
			c.logger.WarnContext(ctx, "failed to record user turn", slog.String("error", err.Error()))
		}
	}
	if response != nil {
		if err := c.history.Append(ctx, ai.RoleAssistant, []ai.ContentPart{ai.TextPart(response.Content)}); err != nil {
			c.logger.WarnContext(ctx, "failed to record assistant turn", slog.String("error", err.Error()))
		}
	}
}

// userTurn returns the parts of the last user message.
func userTurn(messages []ai.Message) []ai.ContentPart {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return messages[i].AllParts()
		}
	}
	return nil
}

func newCallConfig(opts []CallOption) callConfig {
	var call callConfig
	for _, opt := range opts {
		opt(&call)
	}
	return call
}
