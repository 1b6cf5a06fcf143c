package client

import (
	"log/slog"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/format"
	"github.com/leofalp/aibridge/providers/memory"
	"github.com/leofalp/aibridge/providers/memory/ledger"
)

// Option configures a Client.
type Option func(*Client)

// WithFormatter replaces the default message formatter.
func WithFormatter(formatter format.MessageFormatter) Option {
	return func(c *Client) {
		c.formatter = formatter
	}
}

// WithImageProcessor replaces the default image processor.
func WithImageProcessor(images format.ImageProcessor) Option {
	return func(c *Client) {
		c.images = images
	}
}

// WithMemory sets the conversation ledger used by calls made WithHistory.
func WithMemory(history memory.Provider) Option {
	return func(c *Client) {
		c.history = history
	}
}

// WithHistorySize bounds the default ledger. Ignored when WithMemory is used.
func WithHistorySize(maxSize int) Option {
	return func(c *Client) {
		c.historySize = maxSize
	}
}

// WithDefaults sets the options every call starts from.
func WithDefaults(defaults ai.Options) Option {
	return func(c *Client) {
		c.defaults = defaults
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMiddleware appends middlewares; the first one given is outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// CallOption adjusts a single call.
type CallOption func(*callConfig)

type callConfig struct {
	options ai.Options
	history bool
}

// WithModel overrides the model for one call.
func WithModel(model string) CallOption {
	return func(c *callConfig) {
		c.options.Model = model
	}
}

// WithTemperature overrides the temperature for one call. Values outside
// [0,2] are clamped.
func WithTemperature(temperature float64) CallOption {
	return func(c *callConfig) {
		c.options.Temperature = &temperature
	}
}

// WithMaxTokens overrides max tokens for one call. Values below 1 become 1.
func WithMaxTokens(maxTokens int) CallOption {
	return func(c *callConfig) {
		c.options.MaxTokens = &maxTokens
	}
}

// WithOptions merges a whole Options value over the defaults.
func WithOptions(options ai.Options) CallOption {
	return func(c *callConfig) {
		c.options = c.options.Merge(options)
	}
}

// WithHistory records the user turn and, on success, the assistant turn in
// the client's ledger.
func WithHistory() CallOption {
	return func(c *callConfig) {
		c.history = true
	}
}

func defaultHistory(maxSize int, logger *slog.Logger) memory.Provider {
	return ledger.New(maxSize, ledger.WithLogger(logger))
}
