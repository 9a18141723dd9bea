package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docqa/api/mcp"
	"github.com/papercomputeco/docqa/pkg/document/loader"
)

// Server is the API server for querying and rebuilding the docqa index.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server around the pipeline in config.
// The pipeline and indexer are injected so that they can be shared with
// other components (e.g., the directory watcher in "docqa serve --watch").
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.Loader == nil {
		config.Loader = loader.New(loader.Options{})
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaultMaxUploadBytes
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.MaxUploadBytes,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/answer", s.handleAnswer)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Post("/v1/index", s.handleIndex)
	app.Get("/v1/index/stats", s.handleIndexStats)

	if !config.NoMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Pipeline: config.Pipeline,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", !s.config.NoMCP,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
