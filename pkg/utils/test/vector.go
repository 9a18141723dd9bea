package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/vector"
)

// SampleEntries returns entries with distinct, tied, and zero vectors for
// exercising index queries and store round-trips.
func SampleEntries() []vector.Entry {
	chunk := func(doc string, seq int, text string) document.Chunk {
		return document.Chunk{
			DocumentID: doc,
			Seq:        seq,
			Text:       text,
			Start:      seq * 10,
			End:        seq*10 + len(text),
			Overlap:    min(seq, 1) * 2,
			Metadata:   map[string]string{document.MetaSource: doc, "lang": "en"},
		}
	}

	return []vector.Entry{
		{Chunk: chunk("alpha.txt", 0, "alpha one"), Vector: []float32{1, 0, 0, 0}},
		{Chunk: chunk("alpha.txt", 1, "alpha two"), Vector: []float32{0.9, 0.1, 0, 0}},
		{Chunk: chunk("beta.txt", 0, "beta tie a"), Vector: []float32{0, 3, 0, 0}},
		{Chunk: chunk("beta.txt", 1, "beta tie b"), Vector: []float32{0, 0.5, 0, 0}},
		{Chunk: chunk("gamma.txt", 0, "gamma"), Vector: []float32{0.3, 0.3, 0.3, 0.81}},
		{Chunk: chunk("zero.txt", 0, "zero"), Vector: []float32{0, 0, 0, 0}},
		{Chunk: chunk("delta.txt", 0, "délta ünïcode"), Vector: []float32{-1, 0.25, 0, 1e-7}},
	}
}

// QueryCase is a query to compare before and after a round-trip.
type QueryCase struct {
	Vector    []float32
	K         int
	Threshold float64
}

// QueryCases returns queries covering ties, thresholds, k limits, and misses.
func QueryCases() []QueryCase {
	return []QueryCase{
		{Vector: []float32{1, 0, 0, 0}, K: 3, Threshold: 0},
		{Vector: []float32{0, 1, 0, 0}, K: 2, Threshold: 0.5},
		{Vector: []float32{0.2, 0.7, 0.1, 0.4}, K: 10, Threshold: -1},
		{Vector: []float32{0, 0, 1, 0}, K: 5, Threshold: 0.99},
		{Vector: []float32{0.333, 0.333, 0.333, 0.9}, K: 1, Threshold: 0.1},
		{Vector: []float32{0, 0, 0, 0}, K: 4, Threshold: 0},
	}
}

// ErrMockStore is returned by MockStore when told to fail.
var ErrMockStore = errors.New("mock store failure")

// MockStore is a vector.Store that records saves and can be told to fail.
type MockStore struct {
	Saved *vector.Index
	Saves int

	// FailSave and FailLoad make the respective call return ErrMockStore.
	FailSave bool
	FailLoad bool

	// OnSave runs before each save, inside the rebuild.
	OnSave func()
}

var _ vector.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Save(ctx context.Context, ix *vector.Index) error {
	if m.OnSave != nil {
		m.OnSave()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailSave {
		return ErrMockStore
	}
	m.Saved = ix
	m.Saves++
	return nil
}

func (m *MockStore) Load(_ context.Context) (*vector.Index, error) {
	if m.FailLoad {
		return nil, ErrMockStore
	}
	if m.Saved == nil {
		return vector.Empty(), nil
	}
	return m.Saved, nil
}

func (m *MockStore) Close() error {
	return nil
}
