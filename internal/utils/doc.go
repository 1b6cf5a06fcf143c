// Package utils provides shared low-level helpers: a line scanner for
// newline-delimited and SSE response bodies, string truncation for logs, and
// generic pointer helpers.
package utils
