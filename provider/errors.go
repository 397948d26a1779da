package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty response")

// APIError represents an error from an API provider.
type APIError struct {
	// Provider is the name of the provider that encountered the error.
	Provider string

	// StatusCode is the HTTP status, when the backend returned one.
	StatusCode int

	// Message is a human-readable error message.
	Message string

	// Err is the underlying error (if any).
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	prefix := fmt.Sprintf("%s provider error", e.Provider)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether err is worth retrying.
func IsRetriable(err error) bool {
	return isRetriable(err)
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
		return true
	}

	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "temporary") ||
		strings.Contains(msg, "unavailable")
}
