// Package provider provides a reusable abstraction for hosted text-generation APIs.
//
// This package wraps language-model HTTP APIs (Gemini, Groq, etc.) with a
// unified interface, so agents can be bound to any backend and each call
// gets the same timeout and retry behavior.
package provider

import (
	"context"
	"time"
)

// Provider defines the interface for text-generation backends.
type Provider interface {
	// Name returns the provider's unique identifier (e.g., "gemini", "groq").
	Name() string

	// Available reports whether the provider has the credentials it needs.
	Available() bool

	// Execute sends a request to the provider and returns a structured response.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// HealthChecker is implemented by providers that can be pinged.
type HealthChecker interface {
	HealthCheck(ctx context.Context) HealthStatus
}

// Request represents a generation request to a provider.
type Request struct {
	// System is the role framing sent as a system instruction.
	System string

	// Prompt is the user message.
	Prompt string

	// Model is the specific model to use (e.g., "gemini-2.5-flash-lite").
	// If empty, the provider's default model will be used.
	Model string

	// Temperature is the sampling temperature. Nil leaves the backend default.
	Temperature *float32
}

// Response represents a provider's response with metadata.
type Response struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Model is the model that was used for this response.
	Model string `json:"model,omitempty"`

	// Provider is the name of the provider that generated this response.
	Provider string `json:"provider,omitempty"`

	// Metadata contains usage statistics and additional information.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Metadata contains usage statistics and additional response information.
type Metadata struct {
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	TotalTokens  int           `json:"total_tokens,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`

	// StopReason indicates why the generation stopped (e.g., "stop", "length").
	StopReason string `json:"stop_reason,omitempty"`
}

// Config holds configuration for creating a provider.
type Config struct {
	// Name is the unique identifier for this provider (e.g., "gemini").
	Name string

	// DisplayName is a human-friendly name for this provider.
	// If empty, Name will be used.
	DisplayName string

	// APIKey is the credential sent with every request.
	APIKey string

	// BaseURL overrides the backend endpoint (used by tests and proxies).
	BaseURL string

	// DefaultModel is the model to use when Request.Model is empty.
	DefaultModel string

	// Models is a list of known models for this provider.
	Models []string

	// Timeout is the maximum duration for a single attempt.
	// Default: 45 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retries after a retriable failure.
	// Zero means DefaultMaxRetries; negative disables retries.
	MaxRetries int
}

// HealthStatus is the result of a provider health check.
type HealthStatus struct {
	Available    bool          `json:"available"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 {
	return &v
}
