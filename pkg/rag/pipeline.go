// Package rag wires retrieval, prompt assembly and generation into the
// question answering pipeline, and builds the index it retrieves from.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/eventstream"
	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/prompt"
	"github.com/papercomputeco/docqa/pkg/telemetry"
	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// DefaultThreshold is the minimum cosine similarity of a retrieved chunk.
	DefaultThreshold = 0.7
)

// Answer is the pipeline's reply to a question.
type Answer struct {
	Text    string          `json:"answer"`
	Sources []vector.Result `json:"sources"`

	// Grounded is false when no chunk met the threshold and the model was
	// told to reply with the fallback.
	Grounded bool `json:"grounded"`
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Retriever *Retriever
	Assembler *prompt.Assembler
	Generator llm.Generator

	// TopK defaults to DefaultTopK.
	TopK int

	// Threshold defaults to DefaultThreshold when nil.
	Threshold *float64

	// Publisher receives a question.answered event per answer. Optional.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Pipeline answers questions from the current index.
type Pipeline struct {
	retriever *Retriever
	assembler *prompt.Assembler
	generator llm.Generator
	topK      int
	threshold float64
	publisher eventstream.Publisher
	logger    *slog.Logger
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Retriever == nil || cfg.Generator == nil {
		return nil, errors.New("pipeline requires a retriever and a generator")
	}

	p := &Pipeline{
		retriever: cfg.Retriever,
		assembler: cfg.Assembler,
		generator: cfg.Generator,
		topK:      cfg.TopK,
		threshold: DefaultThreshold,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
	if p.assembler == nil {
		p.assembler = prompt.NewAssembler(nil, prompt.Options{})
	}
	if p.topK <= 0 {
		p.topK = DefaultTopK
	}
	if cfg.Threshold != nil {
		p.threshold = *cfg.Threshold
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p, nil
}

// TopK returns the configured number of chunks per question.
func (p *Pipeline) TopK() int {
	return p.topK
}

// Threshold returns the configured similarity threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Index returns the snapshot currently served.
func (p *Pipeline) Index() *vector.Index {
	return p.retriever.Handle().Load()
}

// Search retrieves without generating.
func (p *Pipeline) Search(ctx context.Context, query string, k int, threshold float64) ([]vector.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	return p.retriever.Retrieve(ctx, query, k, threshold)
}

// Answer retrieves context for question, assembles the prompt and asks the
// generator. A generation failure is returned as *GenerationError carrying
// the prompt; nothing is ever answered on the model's behalf.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "answer")
	defer span.End()

	started := time.Now()

	results, err := p.retriever.Retrieve(ctx, question, p.topK, p.threshold)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	assembled := p.assembler.Assemble(question, results)

	gctx, gspan := telemetry.StartClientSpan(ctx, "generate", attribute.Int("prompt.bytes", len(assembled)))
	text, err := p.generator.Generate(gctx, assembled)
	if err != nil {
		err = p.generationError(assembled, results, err)
		telemetry.RecordError(gspan, err)
		gspan.End()
		telemetry.RecordError(span, err)
		return nil, err
	}
	gspan.End()

	answer := &Answer{
		Text:     strings.TrimSpace(text),
		Sources:  results,
		Grounded: len(results) > 0,
	}
	span.SetAttributes(
		attribute.Bool("answer.grounded", answer.Grounded),
		attribute.Int("answer.sources", len(results)),
	)

	elapsed := time.Since(started)
	p.logger.Debug("question answered",
		"grounded", answer.Grounded,
		"sources", len(results),
		"duration", elapsed,
	)
	p.emit(ctx, question, answer, elapsed)

	return answer, nil
}

func (p *Pipeline) generationError(assembled string, results []vector.Result, err error) error {
	if errors.Is(err, credentials.ErrAuthentication) {
		return fmt.Errorf("generating answer: %w", err)
	}
	if !errors.Is(err, llm.ErrGeneration) {
		err = fmt.Errorf("%w: %w", llm.ErrGeneration, err)
	}
	return &GenerationError{Prompt: assembled, Sources: results, Err: err}
}

func (p *Pipeline) emit(ctx context.Context, question string, a *Answer, elapsed time.Duration) {
	if p.publisher == nil {
		return
	}

	payload := eventstream.QuestionAnswered{
		Question:   question,
		Answer:     a.Text,
		Grounded:   a.Grounded,
		DurationMs: elapsed.Milliseconds(),
	}
	for _, r := range a.Sources {
		payload.Sources = append(payload.Sources, r.Chunk.DocumentID)
	}
	if len(a.Sources) > 0 {
		payload.TopScore = a.Sources[0].Score
	}

	if err := p.publisher.Publish(ctx, eventstream.NewQuestionAnswered(payload)); err != nil {
		p.logger.Warn("failed to publish answer event", "error", err)
	}
}
