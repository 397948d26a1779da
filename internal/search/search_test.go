package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"query":"q","results":[
			{"title":"A","url":"https://a.example","content":"Open-plan courthouses failed audits.","score":0.9},
			{"title":"B","url":"https://b.example","content":"Security breaches doubled.","score":0.7}
		]}`))
	}))
	defer srv.Close()

	c := NewTavilyClient("tvly-key", srv.URL, 0)
	snippets, err := c.Search(context.Background(), Query{Text: "legal risks"})
	require.NoError(t, err)

	assert.Equal(t, "legal risks", got.Query)
	assert.Equal(t, DepthAdvanced, got.SearchDepth)
	assert.Equal(t, DefaultMaxResults, got.MaxResults)
	require.Len(t, snippets, 2)
	assert.Equal(t, "Open-plan courthouses failed audits.", snippets[0].Content)
	assert.Equal(t, "https://b.example", snippets[1].URL)
}

func TestTavilySearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"error":"Unauthorized: missing or invalid API key."}}`))
	}))
	defer srv.Close()

	_, err := NewTavilyClient("bad", srv.URL, 0).Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "- one\n- two", Format([]Snippet{{Content: "one"}, {Content: "  "}, {Content: "two"}}))
}

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(ctx context.Context, q Query) ([]Snippet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []Snippet{{Content: q.Text}}, nil
}

func TestCachedSearcher(t *testing.T) {
	t.Run("HitsCache", func(t *testing.T) {
		inner := &countingSearcher{}
		c, err := NewCachedSearcher(inner, 2)
		require.NoError(t, err)

		q := Query{Text: "precedents", Depth: DepthAdvanced, MaxResults: 3}
		first, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		second, err := c.Search(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("DoesNotCacheFailures", func(t *testing.T) {
		inner := &countingSearcher{err: errors.New("quota")}
		c, err := NewCachedSearcher(inner, 0)
		require.NoError(t, err)

		_, err = c.Search(context.Background(), Query{Text: "x"})
		require.Error(t, err)
		_, err = c.Search(context.Background(), Query{Text: "x"})
		require.Error(t, err)

		assert.Equal(t, 2, inner.calls)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Evicts", func(t *testing.T) {
		inner := &countingSearcher{}
		c, err := NewCachedSearcher(inner, 1)
		require.NoError(t, err)

		c.Search(context.Background(), Query{Text: "a"})
		c.Search(context.Background(), Query{Text: "b"})
		c.Search(context.Background(), Query{Text: "a"})

		assert.Equal(t, 3, inner.calls)
	})
}
