// Package groq provides a provider for Groq's OpenAI-compatible chat API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alienxp03/courtroom/provider"
)

const (
	// DefaultBaseURL is the Groq OpenAI-compatible endpoint root.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is used when neither the config nor the request names a model.
	DefaultModel = "llama-3.3-70b-versatile"

	maxErrorBody = 2048
)

// Provider implements the provider.Provider interface for Groq.
type Provider struct {
	provider.BaseProvider
	http    *http.Client
	baseURL string
}

// New creates a new Groq provider with the given configuration.
func New(cfg provider.Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "groq"
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "Groq"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		BaseProvider: provider.NewBaseProvider(cfg),
		http:         &http.Client{},
		baseURL:      baseURL,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Execute sends a chat completion request and returns a structured response.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.ExecuteWithRetry(ctx, req, p.complete)
}

func (p *Provider) complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := p.ResolveModel(req)

	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey())

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, &provider.APIError{Provider: p.Name(), Message: "connection failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return nil, &provider.APIError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %s: %s", resp.Status, msg),
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &provider.APIError{Provider: p.Name(), Message: "decode response", Err: err}
	}
	if len(out.Choices) == 0 {
		return nil, &provider.APIError{Provider: p.Name(), Message: "no choices", Err: provider.ErrEmptyResponse}
	}

	if out.Model != "" {
		model = out.Model
	}
	return &provider.Response{
		Content:  strings.TrimSpace(out.Choices[0].Message.Content),
		Model:    model,
		Provider: p.Name(),
		Metadata: &provider.Metadata{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
			StopReason:   out.Choices[0].FinishReason,
		},
	}, nil
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
