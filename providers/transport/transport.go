package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

const (
	DefaultTimeout             = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second

	// maxErrorBodyBytes bounds how much of a failed stream response is read.
	maxErrorBodyBytes = 64 * 1024
)

// RequestOptions are per-request knobs. A zero Timeout falls back to the
// transport's configured default.
type RequestOptions struct {
	Headers map[string]string
	Timeout time.Duration
}

// Response is a fully read HTTP answer, whatever its status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// StatusError is returned by Stream when the backend answers non-2xx before
// any body has been streamed.
type StatusError struct {
	Status int
	Body   []byte
}

// Error reports the status and the start of the body.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, utils.TruncateString(string(e.Body), 200))
}

// StatusCode implements retry.StatusCoder.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Transport is what HTTP-style providers talk to.
type Transport interface {
	Post(ctx context.Context, url string, body []byte, opts RequestOptions) (*Response, error)
	Get(ctx context.Context, url string, opts RequestOptions) (*Response, error)
	// Stream posts body and returns the open response body for incremental
	// reading. The caller must close it.
	Stream(ctx context.Context, url string, body []byte, opts RequestOptions) (io.ReadCloser, error)
}

// Config tunes the pooled HTTP transport. Zero values take the defaults.
type Config struct {
	Timeout             time.Duration `yaml:"timeout"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	return c
}

// newPooledTransport builds the connection pool owned by one HTTP transport.
func newPooledTransport(cfg Config) *http.Transport {
	var pool *http.Transport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		pool = base.Clone()
	} else {
		pool = &http.Transport{}
	}
	pool.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	pool.MaxIdleConns = cfg.MaxIdleConns
	pool.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	pool.IdleConnTimeout = cfg.IdleConnTimeout
	pool.ForceAttemptHTTP2 = true
	return pool
}

// HTTP is the net/http backed Transport.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithHTTPClient replaces the pooled client, typically with an httptest one.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		h.client = client
	}
}

// WithLogger sets the logger used for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// NewHTTP builds an HTTP transport with its own connection pool. Build one per
// process and hand it to every provider so they share the pool.
func NewHTTP(cfg Config, opts ...Option) *HTTP {
	cfg = cfg.withDefaults()
	h := &HTTP{
		client:  &http.Client{Transport: newPooledTransport(cfg)},
		timeout: cfg.Timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ensure HTTP implements Transport at compile time.
var _ Transport = (*HTTP)(nil)

// Post sends body and returns the full answer, whatever its status.
func (h *HTTP) Post(ctx context.Context, url string, body []byte, opts RequestOptions) (*Response, error) {
	return h.roundTrip(ctx, http.MethodPost, url, body, opts)
}

// Get fetches url and returns the full answer, whatever its status.
func (h *HTTP) Get(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	return h.roundTrip(ctx, http.MethodGet, url, nil, opts)
}

// Stream posts body and returns the open response body. The timeout bounds
// only the wait for response headers; once they arrive the body may be read
// for as long as ctx allows.
func (h *HTTP) Stream(ctx context.Context, url string, body []byte, opts RequestOptions) (io.ReadCloser, error) {
	timeout := h.requestTimeout(opts)
	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)

	res, err := h.do(ctx, http.MethodPost, url, body, opts)
	expired := !timer.Stop()
	if err != nil {
		cancel()
		if expired {
			return nil, ai.NewTransportError(0, fmt.Sprintf("request timeout after %s", timeout), err)
		}
		return nil, classify(err, timeout)
	}
	if expired {
		utils.CloseWithLog(res.Body)
		cancel()
		return nil, ai.NewTransportError(0, fmt.Sprintf("request timeout after %s", timeout), context.DeadlineExceeded)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer cancel()
		defer utils.CloseWithLog(res.Body)
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		return nil, &StatusError{Status: res.StatusCode, Body: data}
	}

	return &cancelOnClose{ReadCloser: res.Body, cancel: cancel}, nil
}

func (h *HTTP) roundTrip(ctx context.Context, method, url string, body []byte, opts RequestOptions) (*Response, error) {
	timeout := h.requestTimeout(opts)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := h.do(ctx, method, url, body, opts)
	if err != nil {
		return nil, classify(err, timeout)
	}
	defer utils.CloseWithLog(res.Body)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("error reading response body: %w", err), timeout)
	}

	h.logger.DebugContext(ctx, "http round trip",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", res.StatusCode),
		slog.Int("response_bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)

	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

func (h *HTTP) do(ctx context.Context, method, url string, body []byte, opts RequestOptions) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	return res, nil
}

func (h *HTTP) requestTimeout(opts RequestOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return h.timeout
}

// classify turns a low-level failure into a TransportError. A hit on the
// per-request deadline is reported as a timeout so that it is retried.
func classify(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewTransportError(0, fmt.Sprintf("request timeout after %s", timeout), err)
	}
	return ai.NewTransportError(0, err.Error(), err)
}

// cancelOnClose releases the request context together with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
