// Package openai is the HTTP dialect for OpenAI-compatible chat completions
// APIs: api.openai.com, Azure OpenAI, OpenRouter and any self-hosted server
// exposing /chat/completions.
//
// The host is detected from the base URL and decides the auth header and the
// max-tokens field name. Text-only messages are sent as plain strings,
// messages with images as content-part arrays.
package openai
