package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/rag"
)

var (
	answerToolName    = "answer"
	answerDescription = "Answer a question from the indexed documents. The answer is generated only from retrieved context; when nothing relevant is indexed the reply is the configured fallback and grounded is false."
)

// AnswerInput represents the input arguments for the answer tool.
type AnswerInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AnswerOutput represents the output of the answer tool.
type AnswerOutput struct {
	Answer   string                   `json:"answer"`
	Grounded bool                     `json:"grounded"`
	Sources  []apisearch.SearchResult `json:"sources"`
}

// handleAnswer runs the question through the pipeline.
func (s *Server) handleAnswer(ctx context.Context, _ *mcp.CallToolRequest, input AnswerInput) (*mcp.CallToolResult, AnswerOutput, error) {
	s.config.Logger.Debug("MCP answer request", "question", input.Question)

	answer, err := s.config.Pipeline.Answer(ctx, input.Question)
	if err != nil {
		s.config.Logger.Error("MCP answer failed", "error", err)

		var genErr *rag.GenerationError
		if errors.As(err, &genErr) {
			return toolError(fmt.Sprintf("Answer generation failed: %v\n\nPrompt:\n%s", err, genErr.Prompt)), AnswerOutput{}, nil
		}
		return toolError(fmt.Sprintf("Answer failed: %v", err)), AnswerOutput{}, nil
	}

	output := AnswerOutput{
		Answer:   answer.Text,
		Grounded: answer.Grounded,
		Sources:  apisearch.Results(answer.Sources),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize answer: %v", err)), AnswerOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
