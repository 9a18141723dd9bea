package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/rag"
)

// ErrorResponse is the body of every failed request. Prompt carries the
// attempted prompt when the language model call failed.
type ErrorResponse struct {
	Error  string `json:"error"`
	Prompt string `json:"prompt,omitempty"`
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Question string `json:"question"`
}

// AnswerResponse is the reply to POST /v1/answer.
type AnswerResponse struct {
	Answer   string                `json:"answer"`
	Grounded bool                  `json:"grounded"`
	Sources  []search.SearchResult `json:"sources"`
}

// IndexResponse is the reply to POST /v1/index.
type IndexResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// StatsResponse is the reply to GET /v1/index/stats.
type StatsResponse struct {
	Entries   int `json:"entries"`
	Dimension int `json:"dimension"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAnswer handles POST /v1/answer requests.
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	answer, err := s.config.Pipeline.Answer(c.Context(), req.Question)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(AnswerResponse{
		Answer:   answer.Text,
		Grounded: answer.Grounded,
		Sources:  search.Results(answer.Sources),
	})
}

// handleIndex handles POST /v1/index requests. The multipart "files" field
// carries the documents the index is rebuilt from.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	if s.config.Indexer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "indexing is not enabled on this server"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "expected a multipart form"})
	}
	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "no files uploaded"})
	}

	var docs []document.Document
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return s.writeError(c, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return s.writeError(c, err)
		}

		loaded, err := s.config.Loader.LoadBytes(fh.Filename, data)
		if err != nil {
			return s.writeError(c, err)
		}
		docs = append(docs, loaded...)
	}

	stats, err := s.config.Indexer.Rebuild(c.Context(), docs)
	if err != nil {
		return s.writeError(c, err)
	}

	s.logger.Info("index rebuilt from upload",
		"files", len(files),
		"documents", stats.Documents,
		"chunks", stats.Chunks,
	)

	return c.JSON(IndexResponse{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
	})
}

// handleIndexStats returns the size of the index currently served.
func (s *Server) handleIndexStats(c *fiber.Ctx) error {
	ix := s.config.Pipeline.Index()
	return c.JSON(StatsResponse{
		Entries:   ix.Len(),
		Dimension: ix.Dim(),
	})
}

// writeError maps err onto a status code and error body.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	var genErr *rag.GenerationError

	switch {
	case errors.Is(err, document.ErrLoad), errors.Is(err, rag.ErrEmptyQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})

	case errors.Is(err, credentials.ErrAuthentication):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})

	case errors.Is(err, rag.ErrRetrievalUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})

	case errors.As(err, &genErr):
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:  err.Error(),
			Prompt: genErr.Prompt,
		})

	default:
		s.logger.Error("request failed",
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
}
