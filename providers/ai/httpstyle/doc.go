// Package httpstyle implements ai.Provider for backends reached over plain
// HTTP. The wire format of a given backend is described by a [Dialect]; the
// package supplies everything else: retries around transport calls, status
// classification, response normalization, live stream reconstruction and a
// cached model list.
//
// Example:
//
//	store := cache.NewStore()
//	provider := httpstyle.New(ollama.Dialect{}, transport.NewHTTP(transport.Config{}), store,
//		httpstyle.WithBaseURL("http://localhost:11434"),
//	)
package httpstyle
