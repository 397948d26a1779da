package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alienxp03/courtroom/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := New(context.Background(), provider.Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.SetBackoff(func(int) time.Duration { return 0 })
	return p
}

func TestExecute(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "The defendant "}, {"text": "is innocent."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
		}`))
	})

	resp, err := p.Execute(context.Background(), &provider.Request{
		System:      "You are a lead Defense Attorney.",
		Prompt:      "Defend this case.",
		Temperature: provider.Float32(0.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "The defendant is innocent." {
		t.Errorf("wrong content: %q", resp.Content)
	}
	if resp.Metadata.TotalTokens != 16 || resp.Metadata.StopReason != "STOP" {
		t.Errorf("unexpected metadata: %+v", resp.Metadata)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system instruction not sent")
	}
}

func TestExecuteServerErrorRetried(t *testing.T) {
	calls := 0
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`))
			return
		}
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	})

	resp, err := p.Execute(context.Background(), &provider.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" || calls < 2 {
		t.Errorf("got %q after %d calls", resp.Content, calls)
	}
}

func TestExecuteBadRequest(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	})

	_, err := p.Execute(context.Background(), &provider.Request{Prompt: "hi"})
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong status: %d", apiErr.StatusCode)
	}
}

func TestExecuteNoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	})
	p.BaseProvider = provider.NewBaseProvider(provider.Config{Name: "gemini", APIKey: "test-key", DefaultModel: DefaultModel, MaxRetries: -1})

	_, err := p.Execute(context.Background(), &provider.Request{Prompt: "hi"})
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}
