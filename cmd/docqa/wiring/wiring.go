// Package wiring assembles the docqa pipeline from a loaded configuration.
// Every command builds one Runtime and closes it on exit.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docqa/cmd/docqa/storepath"
	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/document/loader"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/docqa/pkg/embeddings/utils"
	"github.com/papercomputeco/docqa/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/docqa/pkg/eventstream/utils"
	"github.com/papercomputeco/docqa/pkg/llm"
	llmutils "github.com/papercomputeco/docqa/pkg/llm/utils"
	"github.com/papercomputeco/docqa/pkg/prompt"
	"github.com/papercomputeco/docqa/pkg/rag"
	"github.com/papercomputeco/docqa/pkg/telemetry"
	"github.com/papercomputeco/docqa/pkg/utils"
	"github.com/papercomputeco/docqa/pkg/vector"
	vectorutils "github.com/papercomputeco/docqa/pkg/vector/utils"
	"github.com/papercomputeco/docqa/pkg/worker"
)

const serviceName = "docqa"

// Options selects the parts of the runtime a command needs.
type Options struct {
	// ConfigDir overrides the .docqa/ directory.
	ConfigDir string

	// Generator builds the LLM generator and the answering pipeline.
	Generator bool

	// Restore loads the persisted index before returning.
	Restore bool

	Logger *slog.Logger
}

// Runtime holds every long-lived component of a docqa process.
type Runtime struct {
	Config    *config.Config
	Loader    *loader.Loader
	Embedder  embeddings.Embedder
	Store     vector.Store
	Handle    *vector.Handle
	Indexer   *rag.Indexer
	Retriever *rag.Retriever

	// Generator and Pipeline are nil unless Options.Generator is set.
	Generator llm.Generator
	Pipeline  *rag.Pipeline

	logger  *slog.Logger
	pool    *worker.Pool
	tracing *telemetry.Provider
	closers []func() error
}

// New builds a Runtime for cfg. On error everything opened so far is
// released.
func New(ctx context.Context, cfg *config.Config, opts Options) (rt *Runtime, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rt = &Runtime{Config: cfg, logger: logger, Handle: vector.NewHandle(nil)}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	rt.tracing, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: utils.Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	creds, err := credentials.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	publisher, err := rt.newPublisher()
	if err != nil {
		return nil, err
	}

	rt.Loader = loader.New(loader.Options{CSVTextColumn: cfg.Loader.CSVTextColumn})

	if rt.Embedder, err = newEmbedder(ctx, cfg.Embedding, creds); err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Embedder.Close)

	if rt.Store, err = newStore(ctx, cfg.VectorStore, opts.ConfigDir, creds, logger); err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Store.Close)

	ch, err := chunker.New(chunker.Config{
		Size:       cfg.Chunking.Size,
		Overlap:    cfg.Chunking.Overlap,
		Separators: cfg.Chunking.Separators,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}

	rt.Indexer, err = rag.NewIndexer(rag.IndexerConfig{
		Chunker:     ch,
		Embedder:    rt.Embedder,
		Store:       rt.Store,
		Handle:      rt.Handle,
		Publisher:   publisher,
		Parallelism: cfg.Embedding.Parallelism,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Retriever = rag.NewRetriever(rt.Embedder, rt.Handle)

	if opts.Restore {
		if _, err = rt.Indexer.Restore(ctx); err != nil {
			return nil, err
		}
	}

	if opts.Generator {
		if err = rt.buildPipeline(ctx, creds, publisher); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

func (rt *Runtime) newPublisher() (eventstream.Publisher, error) {
	cfg := rt.Config.EventStream
	backend, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Provider,
		Brokers:      cfg.BrokerList(),
		Topic:        cfg.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	rt.pool, err = worker.NewPool(&worker.Config{
		Publisher: backend,
		Logger:    rt.logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}
	return rt.pool, nil
}

func (rt *Runtime) buildPipeline(ctx context.Context, creds *credentials.Manager, publisher eventstream.Publisher) error {
	cfg := rt.Config

	apiKey, err := providerKey(creds, cfg.LLM.Provider, llmutils.NeedsAPIKey(cfg.LLM.Provider))
	if err != nil {
		return err
	}

	rt.Generator, err = llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
		APIKey:       apiKey,
		MaxTokens:    cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	rt.closers = append(rt.closers, rt.Generator.Close)

	var tmpl *prompt.Template
	if cfg.Prompt.Template != "" {
		if tmpl, err = prompt.NewTemplate(cfg.Prompt.Template); err != nil {
			return fmt.Errorf("prompt.template: %w", err)
		}
	}

	rt.Pipeline, err = rag.NewPipeline(rag.PipelineConfig{
		Retriever: rt.Retriever,
		Assembler: prompt.NewAssembler(tmpl, prompt.Options{Fallback: cfg.Prompt.Fallback}),
		Generator: rt.Generator,
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.Threshold,
		Publisher: publisher,
		Logger:    rt.logger,
	})
	return err
}

// Logger returns the logger the runtime was built with.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Close releases every component in reverse order of creation, drains the
// event pool and flushes traces.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil

	if rt.pool != nil {
		errs = append(errs, rt.pool.Close())
		rt.pool = nil
	}
	if rt.tracing != nil {
		errs = append(errs, rt.tracing.Shutdown(ctx))
		rt.tracing = nil
	}
	return errors.Join(errs...)
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig, creds *credentials.Manager) (embeddings.Embedder, error) {
	apiKey, err := providerKey(creds, cfg.Provider, embeddingutils.NeedsAPIKey(cfg.Provider))
	if err != nil {
		return nil, err
	}

	ttl, err := cfg.CacheDuration()
	if err != nil {
		return nil, err
	}

	e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Provider,
		TargetURL:    cfg.Target,
		Model:        cfg.Model,
		APIKey:       apiKey,
		Dimensions:   int(cfg.Dimensions),
		CacheTTL:     ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return e, nil
}

func newStore(ctx context.Context, cfg config.VectorStoreConfig, configDir string, creds *credentials.Manager, logger *slog.Logger) (vector.Store, error) {
	target, err := storepath.Resolve(cfg.Provider, cfg.Target, configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving vector store target: %w", err)
	}

	var apiKey string
	if cfg.Provider == vectorutils.ProviderQdrant {
		// qdrant keys are optional and only come from credentials.toml
		if apiKey, err = creds.GetKey(vectorutils.ProviderQdrant); err != nil {
			return nil, err
		}
	}

	store, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
		ProviderType: cfg.Provider,
		Target:       target,
		Collection:   cfg.Collection,
		APIKey:       apiKey,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	return store, nil
}

func providerKey(creds *credentials.Manager, provider string, needed bool) (string, error) {
	if !needed {
		return "", nil
	}
	return creds.ResolveKey(provider, "")
}
