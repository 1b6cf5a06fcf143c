package ai

import "context"

// IntegrationStyle tells how a Provider reaches its backend.
type IntegrationStyle string

const (
	StyleHTTP IntegrationStyle = "http" // raw HTTP through a Transport
	StyleSDK  IntegrationStyle = "sdk"  // opaque vendor SDK object
)

// Provider is the trait shared by every integration strategy. The dispatch
// core depends only on this interface; it never inspects which strategy sits
// behind it.
type Provider interface {
	// Name returns the backend name used in errors and logs (e.g. "openai").
	Name() string

	// Style reports the integration strategy.
	Style() IntegrationStyle

	// Chat sends a text-only request and returns the normalized response.
	Chat(ctx context.Context, request ChatRequest) (*Response, error)

	// Vision sends a request whose messages carry processed images.
	Vision(ctx context.Context, request ChatRequest) (*Response, error)

	// StreamChat starts a streamed text request. Pre-stream failures are
	// returned as an error; failures after the first byte arrive through the
	// stream iterator.
	StreamChat(ctx context.Context, request ChatRequest) (*ChatStream, error)

	// StreamVision is the streaming counterpart of Vision.
	StreamVision(ctx context.Context, request ChatRequest) (*ChatStream, error)

	// IsAvailable reports whether the backend answers at all.
	IsAvailable(ctx context.Context) bool

	// ListModels returns the model identifiers offered by the backend.
	ListModels(ctx context.Context) ([]string, error)
}
