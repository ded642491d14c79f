package service

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder memoises vectors by text. Providers are deterministic for
// identical input, so a hit is always equivalent to a fresh call. Failures
// are not cached.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[[32]byte, []float64]
}

// NewCachedEmbedder wraps next with an LRU of size entries.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[[32]byte, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns a cached vector or asks the wrapped provider.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := sha256.Sum256([]byte(text))
	if vec, ok := c.cache.Get(key); ok {
		return clone(vec), nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(vec))
	return vec, nil
}

// Len reports the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

// Model returns the wrapped provider's model name.
func (c *CachedEmbedder) Model() string { return ModelOf(c.next) }

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
