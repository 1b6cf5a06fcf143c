// Package middleware provides built-in middleware for the dispatch client.
// Each constructor returns a [client.MiddlewareConfig] ready for
// [client.WithMiddleware].
//
// [NewLoggingMiddleware] emits structured slog entries before and after every
// provider call, with three verbosity levels (Minimal, Standard, Verbose).
// Streams are logged when the stream completes, fails or is abandoned.
//
// Retries and timeouts are not middleware concerns here: transport calls are
// retried inside the HTTP strategy and timeouts belong to the transport.
//
//	c, err := client.New(provider,
//	    client.WithMiddleware(middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard)),
//	)
package middleware
