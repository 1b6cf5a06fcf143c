// Package ai defines the shared, backend-agnostic types used by every
// integration strategy. Callers build [Message] values, the dispatch core
// resolves them into a [ChatRequest], and a [Provider] implementation turns the
// request into a [Response] or a [ChatStream].
//
// Two strategies implement [Provider]: raw HTTP backends (package httpstyle)
// and vendor SDK objects (package sdkstyle). Both report failures as [*Error]
// values that can be classified with [errors.Is] against [ErrValidation],
// [ErrTransport] and [ErrProvider].
package ai
