// Package anthropic provides the Anthropic Messages API as an SDK-style
// backend: [Client] is a small client object whose CreateMessage returns the
// typed Messages API answer, and [New] wraps any sdkstyle.Client with the
// Anthropic content extraction and stop-reason mapping.
//
// Example:
//
//	client := anthropic.NewClient(tr, anthropic.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")))
//	provider := anthropic.New(client, sdkstyle.WithStore(store))
package anthropic
