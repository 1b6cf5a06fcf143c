// Package client is the dispatch core: the single call surface that routes
// chat, vision and their streaming variants to an ai.Provider, whatever its
// integration style.
//
// Every call formats messages and images through pluggable collaborators,
// merges the client defaults with per-call options (the call wins), clamps
// temperature and max tokens, runs the provider behind a middleware chain
// and, when asked with [WithHistory], records the exchange in the
// conversation ledger. Errors come back as *ai.Error tagged with the provider
// name and the operation.
//
// Example:
//
//	c, err := client.New(provider,
//	    client.WithDefaults(ai.Options{Model: "llama3"}),
//	    client.WithMiddleware(middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard)),
//	)
//	res, err := c.Chat(ctx, []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, client.WithHistory())
package client
