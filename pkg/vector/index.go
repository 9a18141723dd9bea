// Package vector provides the in-memory similarity index docqa queries and
// the stores that persist it.
package vector

import (
	"fmt"
	"math"
	"slices"

	"github.com/papercomputeco/docqa/pkg/document"
)

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  document.Chunk
	Vector []float32
}

// Result is a chunk matched by a query and its cosine similarity.
type Result struct {
	Chunk document.Chunk `json:"chunk"`
	Score float64        `json:"score"`
}

// Index is an immutable set of entries answering cosine similarity queries.
// Vectors are stored unit-normalized, so similarity is a dot product. An
// Index is safe for concurrent queries.
type Index struct {
	entries []Entry
	dim     int
}

// Empty returns an index with no entries.
func Empty() *Index {
	return &Index{}
}

// Build constructs a fresh index from entries, normalizing every vector.
// Entry order is kept and breaks score ties at query time. The input slices
// are not modified.
func Build(entries []Entry) (*Index, error) {
	dim, err := checkDims(entries)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Chunk: e.Chunk, Vector: normalize(e.Vector)}
	}

	return &Index{entries: out, dim: dim}, nil
}

// Restore reassembles an index from entries a Store read back. The vectors
// must already be normalized (as saved from Entries) and are kept bit-for-bit.
func Restore(entries []Entry) (*Index, error) {
	dim, err := checkDims(entries)
	if err != nil {
		return nil, err
	}

	return &Index{entries: slices.Clone(entries), dim: dim}, nil
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Dim returns the vector dimension, or 0 for an empty index.
func (ix *Index) Dim() int {
	return ix.dim
}

// Entries returns the normalized entries in insertion order. Callers must
// not modify the returned vectors.
func (ix *Index) Entries() []Entry {
	return slices.Clone(ix.entries)
}

// Query returns at most k entries whose score is at least threshold, by
// descending score. Equal scores keep insertion order. Querying an empty
// index returns an empty result.
func (ix *Index) Query(vec []float32, k int, threshold float64) ([]Result, error) {
	results := []Result{}
	if k <= 0 || len(ix.entries) == 0 {
		return results, nil
	}

	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(vec), ix.dim)
	}

	q := unit64(vec)
	for _, e := range ix.entries {
		score := dot(e.Vector, q)
		if score < threshold {
			continue
		}
		results = append(results, Result{Chunk: e.Chunk, Score: score})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

func checkDims(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	dim := len(entries[0].Vector)
	if dim == 0 {
		return 0, fmt.Errorf("%w: entry %q has an empty vector", ErrDimensionMismatch, entries[0].Chunk.DocumentID)
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: entry %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(e.Vector), dim)
		}
	}

	return dim, nil
}

// unit64 returns v scaled to unit length in float64. A zero vector stays zero.
func unit64(v []float32) []float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float64, len(v))
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}

func normalize(v []float32) []float32 {
	u := unit64(v)
	out := make([]float32, len(u))
	for i, x := range u {
		out[i] = float32(x)
	}
	return out
}

func dot(a []float32, b []float64) float64 {
	var sum float64
	for i, x := range a {
		sum += float64(x) * b[i]
	}
	return sum
}
