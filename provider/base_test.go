package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
)

func newTestBase(maxRetries int) BaseProvider {
	b := NewBaseProvider(Config{Name: "test", APIKey: "k", DefaultModel: "m1", MaxRetries: maxRetries})
	b.SetBackoff(func(int) time.Duration { return 0 })
	return b
}

func TestNewBaseProviderDefaults(t *testing.T) {
	b := NewBaseProvider(Config{Name: "gemini"})
	if b.Timeout() != DefaultTimeout {
		t.Errorf("wrong timeout: got %v, want %v", b.Timeout(), DefaultTimeout)
	}
	if b.DisplayName() != "gemini" {
		t.Errorf("wrong display name: got %s", b.DisplayName())
	}
	if b.Available() {
		t.Error("provider without API key should not be available")
	}
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("RetriesServerErrorOnce", func(t *testing.T) {
		b := newTestBase(0)
		calls := 0
		resp, err := b.ExecuteWithRetry(context.Background(), &Request{Prompt: "p"}, func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			if calls == 1 {
				return nil, &APIError{Provider: "test", StatusCode: http.StatusServiceUnavailable, Message: "overloaded"}
			}
			return &Response{Content: "ok"}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("wrong call count: got %d, want 2", calls)
		}
		if resp.Model != "m1" || resp.Provider != "test" {
			t.Errorf("response not stamped: %+v", resp)
		}
	})

	t.Run("StopsOnClientError", func(t *testing.T) {
		b := newTestBase(3)
		calls := 0
		_, err := b.ExecuteWithRetry(context.Background(), &Request{}, func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return nil, &APIError{Provider: "test", StatusCode: http.StatusUnauthorized, Message: "bad key"}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("wrong call count: got %d, want 1", calls)
		}
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		b := newTestBase(2)
		calls := 0
		_, err := b.ExecuteWithRetry(context.Background(), &Request{}, func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return nil, &APIError{Provider: "test", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 3 {
			t.Errorf("wrong call count: got %d, want 3", calls)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("expected wrapped APIError, got %v", err)
		}
	})

	t.Run("NoRetriesWhenDisabled", func(t *testing.T) {
		b := newTestBase(-1)
		calls := 0
		b.ExecuteWithRetry(context.Background(), &Request{}, func(ctx context.Context, req *Request) (*Response, error) {
			calls++
			return nil, &APIError{Provider: "test", StatusCode: http.StatusBadGateway, Message: "bad gateway"}
		})
		if calls != 1 {
			t.Errorf("wrong call count: got %d, want 1", calls)
		}
	})

	t.Run("EmptyContentIsError", func(t *testing.T) {
		b := newTestBase(-1)
		_, err := b.ExecuteWithRetry(context.Background(), &Request{}, func(ctx context.Context, req *Request) (*Response, error) {
			return &Response{Content: ""}, nil
		})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("AttemptTimeout", func(t *testing.T) {
		b := NewBaseProvider(Config{Name: "test", Timeout: 10 * time.Millisecond, MaxRetries: -1})
		_, err := b.ExecuteWithRetry(context.Background(), &Request{}, func(ctx context.Context, req *Request) (*Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad request", &APIError{StatusCode: 400, Message: "invalid model"}, false},
		{"connection message", &APIError{Message: "connection failed"}, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider(0)

	status := p.HealthCheck(context.Background())
	if !status.Available {
		t.Fatalf("mock health check failed: %s", status.Error)
	}

	resp, err := p.Execute(context.Background(), &Request{System: "You are the judge.\nBe fair.", Prompt: "case"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content == "" || resp.Provider != "mock" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

type namedProvider struct {
	name  string
	keyed bool
}

func (p *namedProvider) Name() string    { return p.name }
func (p *namedProvider) Available() bool { return p.keyed }
func (p *namedProvider) Execute(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Content: "2", Provider: p.name}, nil
}

func TestRegistry(t *testing.T) {
	t.Run("SharedAccount", func(t *testing.T) {
		r := NewRegistry()
		first := &namedProvider{name: "groq/GROQ_API_KEY1", keyed: true}
		second := &namedProvider{name: "groq/GROQ_API_KEY1", keyed: true}

		if got := r.Bind(core.RoleProsecutor, first); got != Provider(first) {
			t.Fatal("first binding should register its generator")
		}
		if got := r.Bind(core.RoleProsecutionStrategist, second); got != Provider(first) {
			t.Error("second role on the same account should reuse the first generator")
		}
		if names := r.Names(); len(names) != 1 {
			t.Errorf("expected one generator, got %v", names)
		}
		roles := r.Roles("groq/GROQ_API_KEY1")
		if len(roles) != 2 || roles[0] != core.RoleProsecutionStrategist || roles[1] != core.RoleProsecutor {
			t.Errorf("unexpected roles in cast order: %v", roles)
		}
	})

	t.Run("Rebind", func(t *testing.T) {
		r := NewRegistry()
		r.Bind(core.RoleJudge, NewMockProvider(0))
		r.Bind(core.RoleJudge, &namedProvider{name: "groq/GROQ_API_KEY3", keyed: true})

		if r.Binding(core.RoleJudge) != "groq/GROQ_API_KEY3" {
			t.Errorf("unexpected binding %q", r.Binding(core.RoleJudge))
		}
		if names := r.Names(); len(names) != 1 || names[0] != "groq/GROQ_API_KEY3" {
			t.Errorf("orphaned generator should be dropped, got %v", names)
		}
		if p, ok := r.For(core.RoleJudge); !ok || p.Name() != "groq/GROQ_API_KEY3" {
			t.Errorf("For returned %v, %v", p, ok)
		}
		if _, ok := r.For(core.RoleClerk); ok {
			t.Error("unbound role should have no generator")
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		r := NewRegistry()
		r.Bind(core.RoleClerk, &namedProvider{name: "gemini/GEMINI_API_KEY"})
		r.Bind(core.RoleJudge, NewMockProvider(0))

		if got := r.Unconfigured(); len(got) != 1 || got[0] != "gemini/GEMINI_API_KEY" {
			t.Errorf("unexpected unconfigured list: %v", got)
		}
		bindings := r.Bindings()
		bindings[core.RoleClerk] = "tampered"
		if r.Binding(core.RoleClerk) != "gemini/GEMINI_API_KEY" {
			t.Error("Bindings should return a copy")
		}
	})
}
