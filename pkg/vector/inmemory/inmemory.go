// Package inmemory provides a vector.Store that keeps the saved index in
// process memory.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// Store holds a deep copy of the last saved index.
type Store struct {
	mu      sync.RWMutex
	records []vector.Record
}

var _ vector.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Save replaces the stored index with a copy of ix.
func (s *Store) Save(ctx context.Context, ix *vector.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recs := vector.Records(ix)
	for i := range recs {
		recs[i].Vector = slices.Clone(recs[i].Vector)
		recs[i].Metadata = maps.Clone(recs[i].Metadata)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = recs

	return nil
}

// Load rebuilds the stored index.
func (s *Store) Load(ctx context.Context) (*vector.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return vector.FromRecords(s.records)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
