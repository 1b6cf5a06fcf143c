// Package retry wraps transport-level calls with bounded, linearly delayed
// retries. Only failures classified as transient are retried; everything else,
// including validation and formatting failures, propagates on first occurrence.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultMaxAttempts is used when Do is given maxAttempts < 1.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the conventional base delay for callers without configuration.
	DefaultBaseDelay = time.Second
)

// retryableStatuses are the HTTP statuses treated as transient.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// retryableErrnos are the socket errors treated as transient.
var retryableErrnos = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ETIMEDOUT,
}

// StatusCoder is implemented by errors that carry the HTTP status that
// produced them.
type StatusCoder interface {
	StatusCode() int
}

// IsRetryable is the default classification: a transient HTTP status, a
// connection reset/refused or timed-out socket error, a network timeout, or
// any error whose message mentions "timeout".
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr StatusCoder
	if errors.As(err, &statusErr) && retryableStatuses[statusErr.StatusCode()] {
		return true
	}

	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Option customizes a single Do call.
type Option func(*config)

type config struct {
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// WithRetryable replaces the default classification.
func WithRetryable(retryable func(error) bool) Option {
	return func(c *config) {
		c.retryable = retryable
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *config) {
		c.sleep = sleep
	}
}

// WithLogger logs every scheduled retry at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the wait before the attempt following the given 1-based
// failed attempt: baseDelay * attempt.
func Backoff(baseDelay time.Duration, attempt int) time.Duration {
	return baseDelay * time.Duration(attempt)
}

// Do invokes operation up to maxAttempts times. After a retryable failure of
// attempt n (n < maxAttempts) it waits baseDelay*n and tries again. The error
// of the last attempt, or the first non-retryable one, is returned unchanged.
// If ctx ends during a backoff wait, ctx.Err() is returned.
func Do[T any](ctx context.Context, operation func(ctx context.Context) (T, error), maxAttempts int, baseDelay time.Duration, opts ...Option) (T, error) {
	cfg := config{retryable: IsRetryable, sleep: sleepContext}
	for _, opt := range opts {
		opt(&cfg)
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= maxAttempts || !cfg.retryable(err) {
			return zero, err
		}

		delay := Backoff(baseDelay, attempt)
		if cfg.logger != nil {
			cfg.logger.DebugContext(ctx, "retrying transport call",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
				slog.Duration("backoff", delay),
				slog.String("error", err.Error()),
			)
		}

		if sleepErr := cfg.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}
