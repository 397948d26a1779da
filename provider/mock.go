package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockProvider generates simulated responses for offline runs and demos.
type MockProvider struct {
	BaseProvider
	delay time.Duration
}

// NewMockProvider creates a new mock provider. Delay simulates latency.
func NewMockProvider(delay time.Duration) *MockProvider {
	return &MockProvider{
		BaseProvider: NewBaseProvider(Config{
			Name:         "mock",
			DisplayName:  "Mock (Simulated)",
			APIKey:       "mock",
			DefaultModel: "mock-v1",
			Models:       []string{"mock-v1"},
			MaxRetries:   -1,
		}),
		delay: delay,
	}
}

// Execute generates a simulated response.
func (p *MockProvider) Execute(ctx context.Context, req *Request) (*Response, error) {
	return p.ExecuteWithRetry(ctx, req, p.generate)
}

func (p *MockProvider) generate(ctx context.Context, req *Request) (*Response, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}

	var content string
	switch {
	case req.Prompt == HealthCheckPrompt:
		content = "2"
	case strings.Contains(req.Prompt, "Answer with only YES or NO"):
		content = "YES"
	case strings.Contains(req.Prompt, `"prosecution_score"`):
		content = `{"prosecution_score": 55, "defense_score": 60, "agreement": "medium", "commentary": "Simulated scorecard."}`
	default:
		content = fmt.Sprintf("Mock response to: %s... [Simulated content]", truncate(firstLine(req.System), 60))
	}

	return &Response{
		Content:  content,
		Model:    p.ResolveModel(req),
		Provider: p.Name(),
	}, nil
}

// HealthCheck always succeeds for the mock provider.
func (p *MockProvider) HealthCheck(ctx context.Context) HealthStatus {
	return HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
