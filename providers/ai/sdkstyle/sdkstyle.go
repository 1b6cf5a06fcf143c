package sdkstyle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/core/normalize"
	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

const (
	// DefaultMaxTokens is sent when the request leaves max tokens unset, for
	// SDKs that require the field.
	DefaultMaxTokens = 1024

	// ModelsCacheName and ModelsCacheTTL match the HTTP strategy's model cache.
	ModelsCacheName = "models"
	ModelsCacheTTL  = 5 * time.Minute
)

// ErrModelsUnsupported is returned by ListModels for clients without a
// model listing.
var ErrModelsUnsupported = errors.New("model listing not supported by client")

// Params is the vendor-neutral argument of CreateMessage. System messages are
// lifted out of Messages into System.
type Params struct {
	Model       string
	System      string
	Messages    []ai.Message
	MaxTokens   int
	Temperature *float64
}

// Client is the vendor SDK surface the strategy needs.
type Client interface {
	CreateMessage(ctx context.Context, params Params) (any, error)
}

// ModelLister is implemented by clients that can enumerate models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Pinger is implemented by clients with a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Provider is the SDK integration strategy.
type Provider struct {
	name       string
	client     Client
	content    normalize.ContentFunc
	finish     normalize.FinishFunc
	normalizer *normalize.Normalizer
	models     *cache.Cache
	logger     *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithContentFunc sets the provider-specific content extractor.
func WithContentFunc(content normalize.ContentFunc) Option {
	return func(p *Provider) {
		p.content = content
	}
}

// WithFinishFunc sets the stop-reason mapping.
func WithFinishFunc(finish normalize.FinishFunc) Option {
	return func(p *Provider) {
		p.finish = finish
	}
}

// WithStore caches model lists in store.
func WithStore(store *cache.Store) Option {
	return func(p *Provider) {
		if store != nil {
			p.models = store.Create(ModelsCacheName, cache.Options{TTL: ModelsCacheTTL})
		}
	}
}

// WithName overrides the provider name.
func WithName(name string) Option {
	return func(p *Provider) {
		p.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New wraps client as a provider called name.
func New(name string, client Client, opts ...Option) *Provider {
	p := &Provider{name: name, client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.normalizer = normalize.New(p.name, p.content, p.finish)
	return p
}

// Ensure Provider implements ai.Provider at compile time.
var _ ai.Provider = (*Provider)(nil)

// Name returns the provider name used in errors and logs.
func (p *Provider) Name() string {
	return p.name
}

// Style reports ai.StyleSDK.
func (p *Provider) Style() ai.IntegrationStyle {
	return ai.StyleSDK
}

// Chat calls CreateMessage once and normalizes the result. SDK errors are not retried.
func (p *Provider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	return p.send(ctx, request)
}

// Vision is Chat for messages carrying processed images.
func (p *Provider) Vision(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	return p.send(ctx, request)
}

// StreamChat performs a Chat and delivers the result as a single-event stream.
func (p *Provider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	response, err := p.send(ctx, request)
	if err != nil {
		return nil, err
	}
	return ai.NewSingleEventStream(response), nil
}

// StreamVision is the streaming counterpart of Vision.
func (p *Provider) StreamVision(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return p.StreamChat(ctx, request)
}

// IsAvailable pings the client when it can, otherwise tries to list models.
// A client with neither capability is assumed reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	switch client := p.client.(type) {
	case Pinger:
		return client.Ping(ctx) == nil
	case ModelLister:
		_, err := client.ListModels(ctx)
		return err == nil
	}
	return p.client != nil
}

// ListModels returns the client's models, cached for ModelsCacheTTL when a store is set.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	lister, ok := p.client.(ModelLister)
	if !ok {
		return nil, ai.NewProviderError(0, ErrModelsUnsupported.Error(), ErrModelsUnsupported)
	}

	if p.models != nil {
		if cached, ok := p.models.Get(p.name); ok {
			if models, ok := cached.([]string); ok {
				return append([]string(nil), models...), nil
			}
		}
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, asProviderError(err)
	}
	if p.models != nil {
		p.models.Set(p.name, append([]string(nil), models...))
	}
	return models, nil
}

func (p *Provider) send(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	if p.client == nil {
		return nil, ai.NewValidationError("no SDK client configured")
	}

	raw, err := p.client.CreateMessage(ctx, BuildParams(request))
	if err != nil {
		return nil, asProviderError(err)
	}

	payload := normalize.ToPayload(raw)
	if payload == nil {
		return nil, ai.NewProviderError(0, "empty or non-object SDK response", nil)
	}

	p.logger.DebugContext(ctx, "sdk message created", slog.String("provider", p.name), slog.String("model", request.Model))
	return p.normalizer.Normalize(payload, request.Model), nil
}

// BuildParams lifts system messages into Params.System and fills the
// max-tokens default.
func BuildParams(request ai.ChatRequest) Params {
	params := Params{
		Model:       request.Model,
		Temperature: request.Temperature,
		MaxTokens:   utils.Deref(request.MaxTokens, DefaultMaxTokens),
		Messages:    make([]ai.Message, 0, len(request.Messages)),
	}

	var system []string
	for _, message := range request.Messages {
		if message.Role == ai.RoleSystem {
			if text := message.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}
		params.Messages = append(params.Messages, message)
	}
	params.System = strings.Join(system, "\n\n")
	return params
}

// asProviderError keeps an *ai.Error as is and wraps anything else.
func asProviderError(err error) error {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		return err
	}
	return ai.NewProviderError(0, err.Error(), err)
}
