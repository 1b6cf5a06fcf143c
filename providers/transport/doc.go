// Package transport is the HTTP collaborator used by HTTP-style providers.
//
// A Transport sends JSON bodies and hands back raw status, headers and bytes;
// classification of non-2xx answers is left to the caller. Each HTTP value
// owns one pooled *http.Transport; a process builds a single HTTP and passes
// it to every provider. A per-request timeout surfaces as a transient
// transport error.
//
// Example:
//
//	t := transport.NewHTTP(transport.Config{Timeout: 30 * time.Second})
//	res, err := t.Post(ctx, "http://localhost:11434/api/chat", body, transport.RequestOptions{})
package transport
