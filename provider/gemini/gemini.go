// Package gemini provides a Gemini API provider implementation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/alienxp03/courtroom/provider"
)

// DefaultModel is used when neither the config nor the request names a model.
const DefaultModel = "gemini-2.5-flash-lite"

// Provider implements the provider.Provider interface for the Gemini API.
type Provider struct {
	provider.BaseProvider
	client *genai.Client
}

// New creates a new Gemini provider with the given configuration.
func New(ctx context.Context, cfg provider.Config) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "Google Gemini"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Provider{
		BaseProvider: provider.NewBaseProvider(cfg),
		client:       client,
	}, nil
}

// Execute sends a request to Gemini and returns a structured response.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.ExecuteWithRetry(ctx, req, p.generate)
}

func (p *Provider) generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := p.ResolveModel(req)

	cfg := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &provider.APIError{Provider: p.Name(), Message: "no candidates", Err: provider.ErrEmptyResponse}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}

	out := &provider.Response{
		Content:  strings.TrimSpace(b.String()),
		Model:    model,
		Provider: p.Name(),
		Metadata: &provider.Metadata{StopReason: string(resp.Candidates[0].FinishReason)},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Metadata.InputTokens = int(u.PromptTokenCount)
		out.Metadata.OutputTokens = int(u.CandidatesTokenCount)
		out.Metadata.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

func (p *Provider) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return &provider.APIError{
			Provider:   p.Name(),
			StatusCode: apiErr.Code,
			Message:    msg,
			Err:        err,
		}
	}
	return &provider.APIError{Provider: p.Name(), Message: "request failed", Err: err}
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
