package core

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned at startup when required settings are
// missing. It is the only error kind that stops the process.
type ConfigurationError struct {
	// Missing lists the names of the absent credentials or settings.
	Missing []string

	// Message describes any other configuration problem.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing API keys in environment: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// GenerationError wraps a failed model call for one role.
type GenerationError struct {
	Role Role
	Err  error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Role, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SearchError wraps a failed evidence lookup.
type SearchError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// ValidationError reports unusable user input.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransitionError is returned when an operation is not allowed in the
// session's current state.
type TransitionError struct {
	From      State
	Operation string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Operation, e.From)
}

// ErrorText formats a failure as transcript text carrying ErrorMarker.
func ErrorText(label string, err error) string {
	return fmt.Sprintf("%s %s error: %v", ErrorMarker, label, err)
}

// IsErrorText reports whether text stands in for a failed call.
func IsErrorText(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), ErrorMarker)
}
