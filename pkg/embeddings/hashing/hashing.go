// Package hashing implements an offline Embedder that hashes word tokens into
// a fixed number of buckets. It needs no model or network and is
// deterministic, which makes it useful for tests and air-gapped indexing.
package hashing

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/papercomputeco/docqa/pkg/embeddings"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 512

// Embedder is a bag-of-words feature hasher.
type Embedder struct {
	dims int
}

// NewEmbedder returns a hashing embedder producing vectors of dims entries.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Tokens splits text into lowercased runs of letters and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Embed counts each token into its hash bucket. Text without tokens embeds
// as the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	for _, tok := range Tokens(text) {
		vec[xxhash.Sum64String(tok)%uint64(e.dims)]++
	}
	return vec, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
