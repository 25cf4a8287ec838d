package httputil

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single request made by [NewHTTPClient] clients.
	DefaultTimeout = 10 * time.Second

	// DefaultAttempts and DefaultDelay are used by [RetryWithBackoff].
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond

	// maxDelay caps the doubling backoff.
	maxDelay = 8 * time.Second
)

// NewHTTPClient creates an HTTP client with [DefaultTimeout].
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (connection errors, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err (or anything it wraps) is a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt, up to
// a ceiling of eight seconds.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = min(delay*2, maxDelay)
			}
		}
	}
	return lastErr
}

// RetryWithBackoff is [Retry] with [DefaultAttempts] and [DefaultDelay].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultAttempts, DefaultDelay, fn)
}

// StatusError classifies a non-2xx response status. 5xx statuses come back
// wrapped in [RetryableError]; 2xx returns nil.
func StatusError(code int, base error) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return Retryable(&statusError{code: code, base: base})
	default:
		return &statusError{code: code, base: base}
	}
}

type statusError struct {
	code int
	base error
}

func (e *statusError) Error() string {
	if e.base == nil {
		return http.StatusText(e.code)
	}
	return e.base.Error() + ": status " + http.StatusText(e.code)
}

func (e *statusError) Unwrap() error { return e.base }

// StatusCode extracts the HTTP status carried by an error from [StatusError],
// or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}
