package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for callers and for the retry policy.
type ErrorKind string

const (
	// KindValidation marks malformed caller input. Never retried.
	KindValidation ErrorKind = "validation"
	// KindTransport marks network, timeout and 5xx-class failures.
	KindTransport ErrorKind = "transport"
	// KindProvider marks a well-formed error answer from a backend.
	KindProvider ErrorKind = "provider"
)

// Sentinels matched by [Error.Is].
var (
	ErrValidation = errors.New("validation error")
	ErrTransport  = errors.New("transport error")
	ErrProvider   = errors.New("provider error")
)

// Error is the error type surfaced by every public operation. Provider and
// Operation are filled in by the dispatch core; Err keeps the original cause.
type Error struct {
	Kind      ErrorKind
	Provider  string
	Operation string
	Status    int
	Message   string
	Err       error
}

// Error formats the kind, context, status and message.
func (e *Error) Error() string {
	prefix := ""
	switch {
	case e.Provider != "" && e.Operation != "":
		prefix = e.Provider + " " + e.Operation + ": "
	case e.Provider != "":
		prefix = e.Provider + ": "
	case e.Operation != "":
		prefix = e.Operation + ": "
	}

	message := e.Message
	if message == "" && e.Err != nil {
		message = e.Err.Error()
	}

	if e.Status != 0 {
		return fmt.Sprintf("%s%s error (status %d): %s", prefix, e.Kind, e.Status, message)
	}
	return fmt.Sprintf("%s%s error: %s", prefix, e.Kind, message)
}

// Unwrap returns the original cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrProvider:
		return e.Kind == KindProvider
	}
	return false
}

// StatusCode returns the HTTP status that produced the error, or 0.
func (e *Error) StatusCode() int {
	return e.Status
}

// NewValidationError builds a KindValidation error.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewTransportError builds a KindTransport error around a network failure or
// a transient HTTP status.
func NewTransportError(status int, message string, cause error) *Error {
	return &Error{Kind: KindTransport, Status: status, Message: message, Err: cause}
}

// NewProviderError builds a KindProvider error from a backend error answer.
func NewProviderError(status int, message string, cause error) *Error {
	return &Error{Kind: KindProvider, Status: status, Message: message, Err: cause}
}

// WithContext attaches provider and operation names to err. An *Error found in
// the chain is copied, never mutated; any other error is wrapped as a
// KindProvider error that unwraps to the original.
func WithContext(err error, provider, operation string) error {
	if err == nil {
		return nil
	}

	var aiErr *Error
	if errors.As(err, &aiErr) {
		contextualized := *aiErr
		if contextualized.Provider == "" {
			contextualized.Provider = provider
		}
		if contextualized.Operation == "" {
			contextualized.Operation = operation
		}
		return &contextualized
	}

	return &Error{Kind: KindProvider, Provider: provider, Operation: operation, Err: err}
}
