package search

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct queries kept by Cached
const DefaultCacheSize = 256

// Cached memoises successful non-empty results of another provider.
// Failures are never cached so a recovering backend is retried.
type Cached struct {
	next  Provider
	cache *lru.Cache[string, []Result]
}

// NewCached wraps next with an LRU of size entries
func NewCached(next Provider, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []Result](size)
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Name() string    { return "cached(" + c.next.Name() + ")" }
func (c *Cached) Available() bool { return c.next.Available() }

func (c *Cached) Search(ctx context.Context, q Query) ([]Result, error) {
	key := q.key()
	if hit, ok := c.cache.Get(key); ok {
		return slices.Clone(hit), nil
	}

	results, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		c.cache.Add(key, slices.Clone(results))
	}
	return results, nil
}

// Len returns the number of cached queries
func (c *Cached) Len() int {
	return c.cache.Len()
}
