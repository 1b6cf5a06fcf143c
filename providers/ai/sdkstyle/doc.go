// Package sdkstyle implements ai.Provider on top of a vendor client object
// that exposes a single CreateMessage call. The client's answer is treated as
// opaque: it is converted to a generic payload and normalized, with optional
// provider hooks for content extraction and stop-reason mapping.
//
// SDK clients manage their own connections and retries, so calls made here
// are never retried. Streaming operations wrap the synchronous answer in a
// single-event stream.
package sdkstyle
