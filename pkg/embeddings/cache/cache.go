// Package cache decorates an Embedder with an in-process, expiring cache of
// vectors keyed by input text. Repeated questions and re-indexing of
// unchanged chunks skip the round trip to the embedding service.
package cache

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/papercomputeco/docqa/pkg/embeddings"
)

// Embedder caches the vectors produced by an inner Embedder.
type Embedder struct {
	inner embeddings.Embedder
	store *gocache.Cache
}

// New wraps inner with a cache whose entries live for ttl.
func New(inner embeddings.Embedder, ttl time.Duration) *Embedder {
	return &Embedder{
		inner: inner,
		store: gocache.New(ttl, 2*ttl),
	}
}

// Embed returns the cached vector for text, embedding it on a miss. Failures
// are not cached. Callers receive their own copy of the vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.store.Get(text); ok {
		return slices.Clone(v.([]float32)), nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.store.SetDefault(text, slices.Clone(vec))
	return vec, nil
}

// Len returns the number of cached vectors, expired ones included until
// the next cleanup.
func (e *Embedder) Len() int {
	return e.store.ItemCount()
}

// Close flushes the cache and closes the inner embedder.
func (e *Embedder) Close() error {
	e.store.Flush()
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
