package search

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct queries kept in memory.
const DefaultCacheSize = 128

// CachedSearcher memoizes successful lookups. Agents search with fixed
// queries, so repeated rounds reuse the first result set.
type CachedSearcher struct {
	next  Searcher
	cache *lru.Cache[string, []Snippet]
}

// NewCachedSearcher wraps next with an LRU cache of the given size.
func NewCachedSearcher(next Searcher, size int) (*CachedSearcher, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []Snippet](size)
	if err != nil {
		return nil, err
	}
	return &CachedSearcher{next: next, cache: cache}, nil
}

// Search returns a cached result when available. Failures are not cached.
func (c *CachedSearcher) Search(ctx context.Context, q Query) ([]Snippet, error) {
	key := cacheKey(q)
	if snippets, ok := c.cache.Get(key); ok {
		return snippets, nil
	}
	snippets, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, snippets)
	return snippets, nil
}

// Len returns the number of cached queries.
func (c *CachedSearcher) Len() int {
	return c.cache.Len()
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%s|%d|%s", q.Depth, q.MaxResults, q.Text)
}
