package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultTimeout is the default per-attempt timeout for API calls.
	DefaultTimeout = 45 * time.Second

	// DefaultMaxRetries is the default number of retries after a retriable failure.
	DefaultMaxRetries = 1
)

// BaseProvider provides common functionality for API-backed providers.
// Specific providers can embed this to inherit timeout and retry handling.
type BaseProvider struct {
	name         string
	displayName  string
	apiKey       string
	baseURL      string
	defaultModel string
	models       []string
	timeout      time.Duration
	maxRetries   int
	backoff      func(attempt int) time.Duration
}

// NewBaseProvider creates a new base provider from configuration.
func NewBaseProvider(cfg Config) BaseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = cfg.Name
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	return BaseProvider{
		name:         cfg.Name,
		displayName:  displayName,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		models:       cfg.Models,
		timeout:      timeout,
		maxRetries:   maxRetries,
		backoff:      defaultBackoff,
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Name returns the provider identifier.
func (p *BaseProvider) Name() string {
	return p.name
}

// DisplayName returns the human-friendly name.
func (p *BaseProvider) DisplayName() string {
	return p.displayName
}

// APIKey returns the configured credential.
func (p *BaseProvider) APIKey() string {
	return p.apiKey
}

// BaseURL returns the configured endpoint override, if any.
func (p *BaseProvider) BaseURL() string {
	return p.baseURL
}

// Models returns known models.
func (p *BaseProvider) Models() []string {
	return p.models
}

// DefaultModel returns the default model.
func (p *BaseProvider) DefaultModel() string {
	return p.defaultModel
}

// Timeout returns the configured per-attempt timeout.
func (p *BaseProvider) Timeout() time.Duration {
	return p.timeout
}

// Available reports whether a credential is configured.
func (p *BaseProvider) Available() bool {
	return p.apiKey != ""
}

// SetBackoff replaces the retry backoff schedule. Tests use it to avoid sleeping.
func (p *BaseProvider) SetBackoff(fn func(attempt int) time.Duration) {
	p.backoff = fn
}

// ResolveModel returns the request model or the provider default.
func (p *BaseProvider) ResolveModel(req *Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

// ExecuteWithRetry runs call with a per-attempt timeout, retrying
// retriable failures with exponential backoff.
func (p *BaseProvider) ExecuteWithRetry(ctx context.Context, req *Request, call func(context.Context, *Request) (*Response, error)) (*Response, error) {
	maxRetries := p.maxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt - 1)
			slog.Info("Retrying request after backoff",
				"provider", p.name,
				"attempt", attempt+1,
				"max_attempts", maxRetries+1,
				"backoff", backoff,
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := p.executeOnce(ctx, req, call)
		if err == nil {
			if attempt > 0 {
				slog.Info("Request succeeded after retry",
					"provider", p.name,
					"attempt", attempt+1,
				)
			}
			return resp, nil
		}

		// The caller gave up; its deadline is not ours to retry.
		if ctx.Err() != nil {
			return nil, err
		}

		if !isRetriable(err) {
			slog.Debug("Error is not retriable, failing immediately",
				"provider", p.name,
				"error", err,
			)
			return nil, err
		}

		if attempt == maxRetries {
			slog.Error("Request failed after all retries",
				"provider", p.name,
				"attempts", attempt+1,
				"error", err,
			)
			return nil, fmt.Errorf("failed after %d attempts: %w", attempt+1, err)
		}

		slog.Warn("Request failed, will retry",
			"provider", p.name,
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"error", err,
		)
	}

	return nil, fmt.Errorf("unexpected retry loop exit")
}

func (p *BaseProvider) executeOnce(ctx context.Context, req *Request, call func(context.Context, *Request) (*Response, error)) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	slog.Debug("Executing API request",
		"provider", p.name,
		"model", p.ResolveModel(req),
		"prompt_len", len(req.Prompt),
	)

	resp, err := call(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &APIError{
				Provider: p.name,
				Message:  "request timed out",
				Err:      context.DeadlineExceeded,
			}
		}
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, &APIError{Provider: p.name, Message: "empty response", Err: ErrEmptyResponse}
	}

	if resp.Provider == "" {
		resp.Provider = p.name
	}
	if resp.Model == "" {
		resp.Model = p.ResolveModel(req)
	}
	if resp.Metadata == nil {
		resp.Metadata = &Metadata{}
	}
	resp.Metadata.Duration = time.Since(start)

	slog.Debug("API request successful",
		"provider", p.name,
		"output_len", len(resp.Content),
		"duration", resp.Metadata.Duration,
	)
	return resp, nil
}
