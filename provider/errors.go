package provider

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for classifying provider failures. Wrap these with
// fmt.Errorf("%w: detail", Err...) or carry them in an Error.
var (
	// ErrUnknownProvider indicates a provider name with no registered factory.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrRateLimited indicates the service rejected the call for throttling.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a transient service failure (5xx, timeout at
	// the server, connection trouble).
	ErrUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates the call exceeded its deadline on our side.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidRequest indicates the service rejected the call as malformed
	// or unauthorized. Retrying the same call will not help.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMalformedResponse indicates the service answered but the reply
	// could not be parsed into translations.
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is a structured provider failure. It wraps a sentinel, records
// whether a retry could succeed, and carries any throttling hints the
// service sent back.
type Error struct {
	// Provider is the provider name ("openai").
	Provider string

	// Op is the failed operation ("translate").
	Op string

	// Err is the underlying error, usually wrapping a sentinel.
	Err error

	// Retryable reports whether retrying the same call could succeed.
	Retryable bool

	// Status is the HTTP status code, when the failure came off the wire.
	Status int

	// RetryAfter is the service's Retry-After hint, zero when absent.
	RetryAfter time.Duration

	// ResetRequests is the time until the request quota window resets,
	// zero when the service did not report it.
	ResetRequests time.Duration

	// ResetTokens is the time until the token quota window resets,
	// zero when the service did not report it.
	ResetTokens time.Duration
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a provider error wrapping err.
func NewError(providerName, op string, err error, retryable bool) *Error {
	return &Error{Provider: providerName, Op: op, Err: err, Retryable: retryable}
}

// IsRetryable reports whether err represents a failure worth retrying.
// Structured errors answer from their Retryable flag; bare sentinels fall
// back to their class.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformedResponse)
}
