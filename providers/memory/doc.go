// Package memory defines the Provider interface for conversation history.
// A history records the user and assistant turns exchanged through a dispatch
// core; it is process-lifetime state and never persisted.
// The bundled implementation lives in the sibling package
// [github.com/leofalp/aibridge/providers/memory/ledger].
package memory
