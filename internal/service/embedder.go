package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Embedder turns free text into a fixed-length vector. Implementations are
// expected to be deterministic for identical input and may fail or time out.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

var (
	// ErrEmptyEmbedding is returned when a provider answers with no values.
	ErrEmptyEmbedding = errors.New("embedding provider returned an empty vector")
	// ErrEmbeddingUnavailable wraps every provider-side failure of EmbedBug
	// so callers can tell it apart from storage errors.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)

// modelNamer is implemented by embedders that know their model name.
type modelNamer interface {
	Model() string
}

// ModelOf returns the model name of e, or "unknown".
func ModelOf(e Embedder) string {
	if m, ok := e.(modelNamer); ok {
		return m.Model()
	}
	return "unknown"
}

// Embedding providers accepted by NewEmbedder.
const (
	ProviderVertex = "vertex"
	ProviderLocal  = "local"
	ProviderHash   = "hash"
)

// EmbedderConfig selects and tunes the embedding provider.
type EmbedderConfig struct {
	Provider        string
	Model           string
	Dimensions      int
	ProjectID       string
	Location        string
	CredentialsFile string
	Timeout         time.Duration
	CacheSize       int
}

// NewEmbedder builds the configured provider wrapped with a per-call timeout
// and an LRU cache. The returned close func releases provider resources.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (Embedder, func() error, error) {
	var (
		base    Embedder
		closeFn = func() error { return nil }
	)

	switch cfg.Provider {
	case ProviderVertex, "":
		v, err := NewVertexEmbedder(ctx, VertexConfig{
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Model:           cfg.Model,
			CredentialsFile: cfg.CredentialsFile,
			Dimensions:      cfg.Dimensions,
		})
		if err != nil {
			return nil, nil, err
		}
		base, closeFn = v, v.Close
	case ProviderLocal:
		l, err := NewLocalEmbedder(cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		base = l
	case ProviderHash:
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = DefaultHashDimensions
		}
		base = NewHashEmbedder(dims)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var e Embedder = base
	if cfg.Timeout > 0 {
		e = WithTimeout(e, cfg.Timeout)
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCachedEmbedder(e, cfg.CacheSize)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		e = cached
	}
	return e, closeFn, nil
}

type timeoutEmbedder struct {
	next    Embedder
	timeout time.Duration
}

// WithTimeout bounds every Embed call on next by d.
func WithTimeout(next Embedder, d time.Duration) Embedder {
	return &timeoutEmbedder{next: next, timeout: d}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		vec []float64
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vec, err := t.next.Embed(ctx, text)
		ch <- result{vec, err}
	}()

	select {
	case r := <-ch:
		return r.vec, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("embed: %w", ctx.Err())
	}
}

func (t *timeoutEmbedder) Model() string { return ModelOf(t.next) }
