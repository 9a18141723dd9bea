// Package search provides shared search types and logic for retrieval over
// the docqa index. It is used by the REST API endpoint, the MCP server tool
// and the CLI client.
package search

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/vector"
)

// Searcher retrieves chunks without generating an answer.
// *rag.Pipeline satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, k int, threshold float64) ([]vector.Result, error)
	TopK() int
	Threshold() float64
}

// SearchInput represents the input arguments for a search request.
// Zero TopK and nil Threshold fall back to the searcher's configuration.
type SearchInput struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// SearchResult represents a single retrieved chunk.
type SearchResult struct {
	Rank       int               `json:"rank"`
	Score      float64           `json:"score"`
	Source     string            `json:"source"`
	Locator    string            `json:"locator,omitempty"`
	DocumentID string            `json:"document_id"`
	Seq        int               `json:"seq"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search runs a retrieval for input against s.
func Search(ctx context.Context, s Searcher, input SearchInput, logger *slog.Logger) (*SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = s.TopK()
	}
	threshold := s.Threshold()
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	logger.Debug("search request",
		"query", input.Query,
		"top_k", topK,
		"threshold", threshold,
	)

	results, err := s.Search(ctx, input.Query, topK, threshold)
	if err != nil {
		return nil, err
	}

	out := Results(results)
	return &SearchOutput{
		Query:   input.Query,
		Results: out,
		Count:   len(out),
	}, nil
}

// Results flattens retrieval results for display and transport, ranked from 1.
func Results(results []vector.Result) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for i, r := range results {
		meta := make(map[string]string, len(r.Chunk.Metadata))
		for k, v := range r.Chunk.Metadata {
			if k == document.MetaSource || k == document.MetaLocator {
				continue
			}
			meta[k] = v
		}
		if len(meta) == 0 {
			meta = nil
		}

		out = append(out, SearchResult{
			Rank:       i + 1,
			Score:      r.Score,
			Source:     r.Chunk.Source(),
			Locator:    r.Chunk.Locator(),
			DocumentID: r.Chunk.DocumentID,
			Seq:        r.Chunk.Seq,
			Text:       r.Chunk.Text,
			Metadata:   meta,
		})
	}
	return out
}
