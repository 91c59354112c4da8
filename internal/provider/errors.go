package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Error describes a failed completion call. Retryable errors (rate limits
// and 5xx-class failures) may be retried by the policy in retry.go; all
// other failures propagate immediately.
type Error struct {
	// Status is the HTTP status code, or zero for transport failures.
	Status int

	// Message is the provider's error text, or the transport error.
	Message string

	// Retryable marks rate-limit and server-side failures.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider: %s", e.Message)
}

// newStatusError classifies an HTTP status into a provider error.
func newStatusError(status int, message string) *Error {
	return &Error{
		Status:    status,
		Message:   message,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
	}
}

// newTransportError wraps a network-level failure. Transport failures are
// treated as transient.
func newTransportError(err error) *Error {
	return &Error{Message: err.Error(), Retryable: true}
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable
}
