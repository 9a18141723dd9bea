// Package servecmder provides the serve command, which runs the HTTP API and
// MCP server over the document index.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/api"
	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/watcher"
)

type serveCommander struct {
	configDir string
	cfg       *config.Config
	logger    *slog.Logger

	watch   []string
	noMCP   bool
	logFile string

	listen         string
	topK           int
	threshold      float64
	fallback       string
	llmProvider    string
	llmTarget      string
	llmModel       string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	storeProv      string
	storeTgt       string
	csvTextColumn  string
	otlpEndpoint   string
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagTopK,
	config.FlagThreshold,
	config.FlagFallback,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCSVTextColumn,
	config.FlagOTLPEndpoint,
}

const serveLongDesc string = `Run the docqa API server.

Serves the persisted index over HTTP:
  GET  /ping               Health check
  POST /v1/answer          Answer a question
  GET  /v1/search          Retrieve without answering
  POST /v1/index           Rebuild the index from uploaded files
  GET  /v1/index/stats     Size of the served index
  /mcp                     MCP tools "answer" and "search"

With --watch the given directories are indexed on startup and re-indexed
whenever a document under them changes. Requests keep using the previous
index until a rebuild is saved.

Examples:
  docqa serve
  docqa serve --listen :9000 --watch ./docs
  docqa serve --llm-provider anthropic --no-mcp
  docqa serve --log-file docqa.log`

const serveShortDesc string = "Run the docqa API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, cmder.configDir, err = wiring.LoadConfig(cmd, serveFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = wiring.NewLogger(cmd)
			if cmder.logFile != "" {
				closeLog, err := cmder.teeLogFile(cmd)
				if err != nil {
					return err
				}
				defer closeLog()
			}
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVarP(&cmder.watch, "watch", "w", nil, "Directories to index and re-index on change")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the /mcp endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagAPIListen, &cmder.listen)
	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagTopK, &cmder.topK)
	config.AddFloatFlag(cmd, config.DocqaFlags, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagFallback, &cmder.fallback)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreProv, &cmder.storeProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreTgt, &cmder.storeTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagCSVTextColumn, &cmder.csvTextColumn)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagOTLPEndpoint, &cmder.otlpEndpoint)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := wiring.New(ctx, c.cfg, wiring.Options{
		ConfigDir: c.configDir,
		Generator: true,
		Restore:   true,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Pipeline:   rt.Pipeline,
		Indexer:    rt.Indexer,
		Loader:     rt.Loader,
		NoMCP:      c.noMCP,
	}, c.logger)
	if err != nil {
		return err
	}

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	if len(c.watch) > 0 {
		reindex := newReindexer(rt, c.watch, c.logger)
		reindex(ctx, nil)

		w, err := watcher.New(watcher.Config{Paths: c.watch, Logger: c.logger}, reindex)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				errChan <- err
			}
		}()
		c.logger.Info("watching documents", "paths", c.watch)
	}

	c.logger.Info("starting api server",
		"listen", c.cfg.API.Listen,
		"entries", rt.Handle.Load().Len(),
		"llm", c.cfg.LLM.Provider,
		"embedding", c.cfg.Embedding.Provider,
		"vector_store", c.cfg.VectorStore.Provider,
	)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		_ = server.Shutdown()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	return server.Shutdown()
}

// teeLogFile adds a JSON logger appending to --log-file next to the console
// logger. The returned func closes the file.
func (c *serveCommander) teeLogFile(cmd *cobra.Command) (func(), error) {
	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	c.logger = logger.Multi(c.logger, logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

// newReindexer returns a watcher callback that rebuilds the index from paths.
// A failed rebuild is logged and leaves the served index in place.
func newReindexer(rt *wiring.Runtime, paths []string, log *slog.Logger) watcher.ChangeFunc {
	return func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			log.Info("documents changed, re-indexing", "changed", changed)
		} else {
			log.Info("indexing watched documents", "paths", paths)
		}

		docs, err := rt.Loader.LoadPaths(ctx, paths)
		if err != nil {
			log.Error("re-index failed, keeping the current index", "error", err)
			return
		}

		if _, err := rt.Indexer.Rebuild(ctx, docs); err != nil {
			log.Error("re-index failed, keeping the current index", "error", err)
		}
	}
}
