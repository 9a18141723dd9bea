package rag

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/telemetry"
	"github.com/papercomputeco/docqa/pkg/vector"
)

// Retriever embeds questions and queries the current index snapshot.
type Retriever struct {
	embedder embeddings.Embedder
	handle   *vector.Handle
}

// NewRetriever returns a Retriever reading from handle.
func NewRetriever(e embeddings.Embedder, handle *vector.Handle) *Retriever {
	return &Retriever{embedder: e, handle: handle}
}

// Handle returns the index handle the retriever reads from.
func (r *Retriever) Handle() *vector.Handle {
	return r.handle
}

// Retrieve returns at most k chunks scoring at least threshold against
// question. No match is an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, threshold float64) ([]vector.Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieve",
		attribute.Int("retrieval.k", k),
		attribute.Float64("retrieval.threshold", threshold),
	)
	defer span.End()

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		err = classifyEmbedError(ctx, "embedding question", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	results, err := r.handle.Load().Query(vec, k, threshold)
	if err != nil {
		err = fmt.Errorf("%w: querying index: %w", ErrRetrievalUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("retrieval.results", len(results)))
	return results, nil
}

// classifyEmbedError keeps authentication failures and cancellation as they
// are and marks everything else as retrieval-unavailable.
func classifyEmbedError(ctx context.Context, what string, err error) error {
	switch {
	case errors.Is(err, credentials.ErrAuthentication):
		return fmt.Errorf("%s: %w", what, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", what, ctx.Err())
	default:
		return fmt.Errorf("%w: %s: %w", ErrRetrievalUnavailable, what, err)
	}
}
