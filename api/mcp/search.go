package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/docqa/api/search"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the indexed documents using semantic search. Returns the chunks most similar to the query text with their source and similarity score."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the search query text"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"number of results to return (default: the server's retrieval.top_k)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity between -1 and 1 (default: the server's retrieval.threshold)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	output, err := apisearch.Search(ctx, s.config.Pipeline, apisearch.SearchInput{
		Query:     input.Query,
		TopK:      input.TopK,
		Threshold: input.Threshold,
	}, s.config.Logger)
	if err != nil {
		s.config.Logger.Error("MCP search failed", "error", err)
		return toolError(fmt.Sprintf("Search failed: %v", err)), apisearch.SearchOutput{}, nil
	}

	// Structured tool output is mirrored as JSON text for older MCP clients
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), apisearch.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
