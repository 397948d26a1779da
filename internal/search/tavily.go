package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTavilyURL is the Tavily API root.
	DefaultTavilyURL = "https://api.tavily.com"

	// DefaultTimeout bounds a single search call.
	DefaultTimeout = 15 * time.Second
)

// TavilyClient is a Searcher backed by the Tavily search API.
type TavilyClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
}

// NewTavilyClient creates a client. An empty baseURL selects the public API
// and a zero timeout selects DefaultTimeout.
func NewTavilyClient(apiKey, baseURL string, timeout time.Duration) *TavilyClient {
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TavilyClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
	}
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth Depth  `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search sends the query to Tavily and returns the results in ranked order.
func (c *TavilyClient) Search(ctx context.Context, q Query) ([]Snippet, error) {
	if q.Depth == "" {
		q.Depth = DepthAdvanced
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(tavilyRequest{Query: q.Text, SearchDepth: q.Depth, MaxResults: q.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tavily: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	snippets := make([]Snippet, 0, len(out.Results))
	for _, r := range out.Results {
		snippets = append(snippets, Snippet{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}

	slog.Debug("Search completed", "query", q.Text, "results", len(snippets), "duration", time.Since(start))
	return snippets, nil
}
