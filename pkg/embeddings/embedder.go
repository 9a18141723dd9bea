// Package embeddings defines the Embedder docqa uses to turn chunks and
// questions into vectors.
package embeddings

import "context"

// Embedder provides text embedding capabilities. The same Embedder must be
// used to index documents and to embed questions against that index.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
