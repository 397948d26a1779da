// Package search fetches short evidence snippets from a web search service.
package search

import (
	"context"
	"strings"
)

// Depth selects how thoroughly the search service looks.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// DefaultMaxResults is the number of snippets each agent asks for.
const DefaultMaxResults = 3

// Query is a single evidence lookup.
type Query struct {
	Text       string
	Depth      Depth
	MaxResults int
}

// Snippet is one search result.
type Snippet struct {
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher runs evidence lookups.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Snippet, error)
}

// Format renders snippets as a bulleted evidence block. No snippets yields
// an empty string.
func Format(snippets []Snippet) string {
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			continue
		}
		lines = append(lines, "- "+content)
	}
	return strings.Join(lines, "\n")
}

// Nop is a Searcher that never finds anything. It backs offline runs.
type Nop struct{}

// Search returns no snippets.
func (Nop) Search(context.Context, Query) ([]Snippet, error) {
	return nil, nil
}
