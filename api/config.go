// Package api provides the HTTP API server for asking questions over the
// docqa index, searching it and rebuilding it from uploads.
package api

import (
	"github.com/papercomputeco/docqa/pkg/document/loader"
	"github.com/papercomputeco/docqa/pkg/rag"
)

// defaultMaxUploadBytes bounds a POST /v1/index request body.
const defaultMaxUploadBytes = 32 << 20

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Pipeline answers and searches. Required.
	Pipeline *rag.Pipeline

	// Indexer rebuilds the index from uploads. When nil, POST /v1/index
	// responds 503.
	Indexer *rag.Indexer

	// Loader parses uploaded files. Defaults to a loader with default options.
	Loader *loader.Loader

	// MaxUploadBytes bounds request bodies (defaults to 32 MiB).
	MaxUploadBytes int

	// NoMCP disables the /mcp endpoint.
	NoMCP bool
}
