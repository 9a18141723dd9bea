package testutils

import (
	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/embeddings/hashing"
	"github.com/papercomputeco/docqa/pkg/prompt"
	"github.com/papercomputeco/docqa/pkg/rag"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/inmemory"
)

// TestPipeline is a pipeline and indexer wired over the hashing embedder, an
// in-memory store and a MockGenerator.
type TestPipeline struct {
	Pipeline  *rag.Pipeline
	Indexer   *rag.Indexer
	Assembler *prompt.Assembler
	Generator *MockGenerator
	Publisher *MockPublisher
	Store     *inmemory.Store
}

// NewTestPipeline builds a TestPipeline retrieving at the given threshold.
// A nil embedder selects the hashing embedder.
func NewTestPipeline(embedder embeddings.Embedder, threshold float64) (*TestPipeline, error) {
	tp := &TestPipeline{
		Assembler: prompt.NewAssembler(nil, prompt.Options{}),
		Generator: NewMockGenerator(),
		Publisher: NewMockPublisher(),
		Store:     inmemory.NewStore(),
	}

	c, err := chunker.New(chunker.Config{Size: 200, Overlap: 20})
	if err != nil {
		return nil, err
	}

	if embedder == nil {
		embedder = hashing.NewEmbedder(0)
	}
	handle := vector.NewHandle(nil)

	tp.Indexer, err = rag.NewIndexer(rag.IndexerConfig{
		Chunker:   c,
		Embedder:  embedder,
		Store:     tp.Store,
		Handle:    handle,
		Publisher: tp.Publisher,
	})
	if err != nil {
		return nil, err
	}

	tp.Pipeline, err = rag.NewPipeline(rag.PipelineConfig{
		Retriever: rag.NewRetriever(embedder, handle),
		Assembler: tp.Assembler,
		Generator: tp.Generator,
		Threshold: &threshold,
		Publisher: tp.Publisher,
	})
	if err != nil {
		return nil, err
	}

	return tp, nil
}
