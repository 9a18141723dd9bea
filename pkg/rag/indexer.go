package rag

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/eventstream"
	"github.com/papercomputeco/docqa/pkg/telemetry"
	"github.com/papercomputeco/docqa/pkg/vector"
)

// DefaultParallelism bounds concurrent embedding calls during a rebuild.
const DefaultParallelism = 4

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	Chunker  *chunker.Chunker
	Embedder embeddings.Embedder
	Store    vector.Store
	Handle   *vector.Handle

	// Publisher receives an index.built event after each publish. Optional.
	Publisher eventstream.Publisher

	// Parallelism defaults to DefaultParallelism.
	Parallelism int

	Logger *slog.Logger
}

// BuildStats summarizes a rebuild.
type BuildStats struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Dimension int           `json:"dimension"`
	Sources   []string      `json:"sources"`
	Duration  time.Duration `json:"duration"`
}

// Indexer builds indexes from documents, persists them and publishes them
// to readers. Rebuilds are serialized.
type Indexer struct {
	cfg IndexerConfig
	mu  sync.Mutex
}

// NewIndexer validates cfg and returns an Indexer.
func NewIndexer(cfg IndexerConfig) (*Indexer, error) {
	if cfg.Chunker == nil || cfg.Embedder == nil || cfg.Store == nil || cfg.Handle == nil {
		return nil, fmt.Errorf("indexer requires a chunker, embedder, store and handle")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{cfg: cfg}, nil
}

// Restore loads the persisted index and publishes it.
func (ix *Indexer) Restore(ctx context.Context) (*vector.Index, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	loaded, err := ix.cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	ix.cfg.Handle.Publish(loaded)
	ix.cfg.Logger.Info("index restored", "entries", loaded.Len(), "dimension", loaded.Dim())
	return loaded, nil
}

// Rebuild replaces the index with one built from docs. The new index is
// saved before it is published; on any failure readers keep the previous
// snapshot and the store keeps the previous index.
func (ix *Indexer) Rebuild(ctx context.Context, docs []document.Document) (*BuildStats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "index.rebuild", attribute.Int("index.documents", len(docs)))
	defer span.End()

	started := time.Now()

	built, err := ix.build(ctx, docs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := ix.cfg.Store.Save(ctx, built); err != nil {
		err = fmt.Errorf("saving index: %w", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	ix.cfg.Handle.Publish(built)

	stats := &BuildStats{
		Documents: len(docs),
		Chunks:    built.Len(),
		Dimension: built.Dim(),
		Sources:   sources(docs),
		Duration:  time.Since(started),
	}
	span.SetAttributes(attribute.Int("index.chunks", stats.Chunks))

	ix.cfg.Logger.Info("index rebuilt",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"dimension", stats.Dimension,
		"duration", stats.Duration,
	)
	ix.emit(ctx, stats)

	return stats, nil
}

func (ix *Indexer) build(ctx context.Context, docs []document.Document) (*vector.Index, error) {
	var chunks []document.Chunk
	for _, doc := range docs {
		chunks = append(chunks, ix.cfg.Chunker.Collect(doc)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text to index", document.ErrLoad)
	}

	entries := make([]vector.Entry, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Parallelism)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := ix.cfg.Embedder.Embed(gctx, c.Text)
			if err != nil {
				return classifyEmbedError(ctx, fmt.Sprintf("embedding %s chunk %d", c.DocumentID, c.Seq), err)
			}
			entries[i] = vector.Entry{Chunk: c, Vector: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	built, err := vector.Build(entries)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return built, nil
}

func (ix *Indexer) emit(ctx context.Context, stats *BuildStats) {
	if ix.cfg.Publisher == nil {
		return
	}
	event := eventstream.NewIndexBuilt(eventstream.IndexBuilt{
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Dimension:  stats.Dimension,
		Sources:    stats.Sources,
		DurationMs: stats.Duration.Milliseconds(),
	})
	if err := ix.cfg.Publisher.Publish(ctx, event); err != nil {
		ix.cfg.Logger.Warn("failed to publish index event", "error", err)
	}
}

func sources(docs []document.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Source)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
