package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/ai/sdkstyle"
	"github.com/leofalp/aibridge/providers/transport"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"

	messagesEndpoint = "/messages"
	modelsEndpoint   = "/models"

	// apiVersion pins the response format.
	apiVersion = "2023-06-01"
)

// Client is a minimal Messages API client. It performs no retries of its own.
type Client struct {
	transport    transport.Transport
	apiKey       string
	baseURL      string
	capabilities Capabilities
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the key sent in the x-api-key header.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithBaseURL overrides the API root; empty keeps the default.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithCapabilities enables prompt caching and beta features.
func WithCapabilities(capabilities Capabilities) ClientOption {
	return func(c *Client) {
		c.capabilities = capabilities
	}
}

// NewClient builds a Client sending requests through tr.
func NewClient(tr transport.Transport, opts ...ClientOption) *Client {
	c := &Client{transport: tr, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client satisfies the optional SDK interfaces at compile time.
var (
	_ sdkstyle.Client      = (*Client)(nil)
	_ sdkstyle.ModelLister = (*Client)(nil)
)

// CreateMessage sends params and returns the decoded *Message.
func (c *Client) CreateMessage(ctx context.Context, params sdkstyle.Params) (any, error) {
	if c.apiKey == "" {
		return nil, ai.NewValidationError("ANTHROPIC_API_KEY is not set")
	}

	request, err := toRequest(params, c.capabilities)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	res, err := c.transport.Post(ctx, c.baseURL+messagesEndpoint, body, transport.RequestOptions{Headers: c.headers()})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, ai.NewProviderError(res.Status, apiErrorMessage(res.Body), nil)
	}

	var message Message
	if err := json.Unmarshal(res.Body, &message); err != nil {
		return nil, ai.NewProviderError(res.Status, "error decoding message", err)
	}
	return &message, nil
}

// ListModels returns the model ids visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	res, err := c.transport.Get(ctx, c.baseURL+modelsEndpoint, transport.RequestOptions{Headers: c.headers()})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, ai.NewProviderError(res.Status, apiErrorMessage(res.Body), nil)
	}

	var page modelPage
	if err := json.Unmarshal(res.Body, &page); err != nil {
		return nil, ai.NewProviderError(res.Status, "error decoding model list", err)
	}
	models := make([]string, 0, len(page.Data))
	for _, model := range page.Data {
		models = append(models, model.ID)
	}
	return models, nil
}

// headers uses x-api-key; Anthropic does not take bearer tokens.
func (c *Client) headers() map[string]string {
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}
	if beta := c.capabilities.betaHeaderValue(); beta != "" {
		headers["anthropic-beta"] = beta
	}
	return headers
}

// apiErrorMessage reads {"type":"error","error":{"message":...}}.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}
