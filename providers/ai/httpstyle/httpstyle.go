package httpstyle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/core/normalize"
	"github.com/leofalp/aibridge/core/reconstruct"
	"github.com/leofalp/aibridge/core/retry"
	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/transport"
)

const (
	// ModelsCacheName is the Store cache holding model lists.
	ModelsCacheName = "models"
	// ModelsCacheTTL is how long a model list is reused.
	ModelsCacheTTL = 5 * time.Minute

	// DefaultProbeTimeout bounds IsAvailable.
	DefaultProbeTimeout = 5 * time.Second
)

// Provider is the HTTP integration strategy.
type Provider struct {
	dialect       Dialect
	transport     transport.Transport
	reconstructor *reconstruct.Reconstructor
	normalizer    *normalize.Normalizer
	models        *cache.Cache

	name         string
	baseURL      string
	apiKey       string
	maxAttempts  int
	baseDelay    time.Duration
	timeout      time.Duration
	probeTimeout time.Duration
	retryOptions []retry.Option
	logger       *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithName overrides the dialect name, e.g. to tell two Ollama hosts apart.
func WithName(name string) Option {
	return func(p *Provider) {
		p.name = name
	}
}

// WithBaseURL sets the API root, without a trailing slash.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the key passed to the dialect's headers.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.apiKey = apiKey
	}
}

// WithRetry sets the attempt budget and linear base delay of transport calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Provider) {
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
	}
}

// WithRetryOptions forwards options to every retry.Do call.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(p *Provider) {
		p.retryOptions = append(p.retryOptions, opts...)
	}
}

// WithRequestTimeout sets the per-request timeout handed to the transport.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.timeout = timeout
	}
}

// WithProbeTimeout sets the timeout of IsAvailable.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.probeTimeout = timeout
	}
}

// WithReconstructor replaces the default stream reconstructor.
func WithReconstructor(r *reconstruct.Reconstructor) Option {
	return func(p *Provider) {
		p.reconstructor = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New builds an HTTP provider for dialect. store backs the stream and model
// caches; it may be shared by every provider of the process.
func New(dialect Dialect, tr transport.Transport, store *cache.Store, opts ...Option) *Provider {
	p := &Provider{
		dialect:      dialect,
		transport:    tr,
		name:         dialect.Name(),
		baseURL:      strings.TrimRight(dialect.DefaultBaseURL(), "/"),
		maxAttempts:  retry.DefaultMaxAttempts,
		baseDelay:    retry.DefaultBaseDelay,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if store == nil {
		store = cache.NewStore()
	}
	if p.reconstructor == nil {
		p.reconstructor = reconstruct.New(store, reconstruct.WithLogger(p.logger))
	}
	p.normalizer = normalize.New(p.name, nil, nil)
	p.models = store.Create(ModelsCacheName, cache.Options{TTL: ModelsCacheTTL})
	return p
}

// Ensure Provider implements ai.Provider at compile time.
var _ ai.Provider = (*Provider)(nil)

// Name returns the provider name used in errors and logs.
func (p *Provider) Name() string {
	return p.name
}

// Style reports ai.StyleHTTP.
func (p *Provider) Style() ai.IntegrationStyle {
	return ai.StyleHTTP
}

// Chat posts a non-streaming request, retrying transient failures.
func (p *Provider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	return p.send(ctx, request)
}

// Vision posts a request whose messages carry processed images.
func (p *Provider) Vision(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	return p.send(ctx, request)
}

// StreamChat opens a streaming request and reconstructs it live.
func (p *Provider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return p.stream(ctx, request)
}

// StreamVision is the streaming counterpart of Vision.
func (p *Provider) StreamVision(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return p.stream(ctx, request)
}

// IsAvailable probes the models endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	res, err := p.transport.Get(ctx, p.baseURL+p.dialect.ModelsPath(), p.requestOptions(p.probeTimeout))
	if err != nil {
		p.logger.DebugContext(ctx, "availability probe failed", slog.String("provider", p.name), slog.String("error", err.Error()))
		return false
	}
	return res.OK()
}

// ListModels returns the backend's models, cached for ModelsCacheTTL.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	key := p.name + "|" + p.baseURL
	if cached, ok := p.models.Get(key); ok {
		if models, ok := cached.([]string); ok {
			return append([]string(nil), models...), nil
		}
	}

	data, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		res, err := p.transport.Get(ctx, p.baseURL+p.dialect.ModelsPath(), p.requestOptions(p.timeout))
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, statusError(res.Status, res.Body)
		}
		return res.Body, nil
	}, p.maxAttempts, p.baseDelay, p.retryOpts()...)
	if err != nil {
		return nil, err
	}

	models, err := p.dialect.ParseModels(data)
	if err != nil {
		return nil, ai.NewProviderError(0, "unparseable model list", err)
	}

	p.models.Set(key, models)
	return append([]string(nil), models...), nil
}

func (p *Provider) send(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
	body, err := p.encode(request, false)
	if err != nil {
		return nil, err
	}

	data, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		res, err := p.transport.Post(ctx, p.baseURL+p.dialect.ChatPath(), body, p.requestOptions(p.timeout))
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, statusError(res.Status, res.Body)
		}
		return res.Body, nil
	}, p.maxAttempts, p.baseDelay, p.retryOpts()...)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if json.Unmarshal(data, &payload) == nil && payload != nil {
		return p.normalizer.Normalize(payload, request.Model), nil
	}

	// Some backends stream even when asked not to.
	result := p.reconstructor.Reconstruct(string(data))
	if result.Terminal == nil {
		p.logger.DebugContext(ctx, "response body has no parseable payload",
			slog.String("provider", p.name),
			slog.String("body", utils.TruncateString(string(data), 200)),
		)
	}
	return p.normalizer.NormalizeContent(result.Terminal, result.Content, request.Model), nil
}

func (p *Provider) stream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	body, err := p.encode(request, true)
	if err != nil {
		return nil, err
	}

	reader, err := retry.Do(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		reader, err := p.transport.Stream(ctx, p.baseURL+p.dialect.ChatPath(), body, p.requestOptions(p.timeout))
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			return nil, statusError(statusErr.Status, statusErr.Body)
		}
		return reader, err
	}, p.maxAttempts, p.baseDelay, p.retryOpts()...)
	if err != nil {
		return nil, err
	}

	return p.reconstructor.Live(ctx, reader, p.normalizer, request.Model), nil
}

func (p *Provider) encode(request ai.ChatRequest, stream bool) ([]byte, error) {
	wire, err := p.dialect.BuildBody(request, stream)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}
	return body, nil
}

func (p *Provider) requestOptions(timeout time.Duration) transport.RequestOptions {
	return transport.RequestOptions{Headers: p.dialect.Headers(p.apiKey), Timeout: timeout}
}

func (p *Provider) retryOpts() []retry.Option {
	return append([]retry.Option{retry.WithLogger(p.logger)}, p.retryOptions...)
}

// statusError classifies a non-2xx answer: transient statuses become
// TransportErrors, everything else a ProviderError carrying the backend's
// own message.
func statusError(status int, body []byte) error {
	message := errorMessage(status, body)
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ai.NewTransportError(status, message, nil)
	}
	return ai.NewProviderError(status, message, nil)
}

// errorMessage reads error.message, error or message from a JSON error body,
// falling back to the raw body and then to the status text.
func errorMessage(status int, body []byte) string {
	var payload map[string]any
	if json.Unmarshal(body, &payload) == nil {
		switch errValue := payload["error"].(type) {
		case map[string]any:
			if message, ok := errValue["message"].(string); ok && message != "" {
				return message
			}
		case string:
			if errValue != "" {
				return errValue
			}
		}
		if message, ok := payload["message"].(string); ok && message != "" {
			return message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return utils.TruncateString(text, 200)
	}
	return http.StatusText(status)
}
