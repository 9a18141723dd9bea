// Package gemini implements pkg/llm's Generator for Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/llm"
)

// GeneratorConfig holds configuration for the Gemini generator.
type GeneratorConfig struct {
	APIKey string
	Model  string

	// MaxTokens caps the answer length when positive.
	MaxTokens int

	// Endpoint overrides the Generative Language API URL.
	Endpoint string
}

// Generator wraps a Gemini generative model.
type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGenerator creates a Gemini generator. An API key is required.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini generator requires an API key", credentials.ErrAuthentication)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", llm.ErrGeneration, err)
	}

	model := client.GenerativeModel(llm.ResolveModel(llm.Gemini, cfg.Model))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	return &Generator{client: client, model: model}, nil
}

// Generate sends prompt and joins the text parts of the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini returned no candidates", llm.ErrGeneration)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Close closes the underlying client.
func (g *Generator) Close() error {
	return g.client.Close()
}

// classify maps REST and gRPC failures onto the llm error kinds.
func classify(err error) error {
	if credentials.GoogleKeyRejected(err) {
		return fmt.Errorf("%w: gemini rejected the API key: %v", credentials.ErrAuthentication, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.StatusError("gemini", apiErr.Code, apiErr.Message)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: gemini: %s", credentials.ErrAuthentication, st.Message())
		case codes.InvalidArgument, codes.ResourceExhausted:
			if llm.IsContextOverflow(st.Message()) {
				return fmt.Errorf("%w: gemini: %s", llm.ErrInputTooLarge, st.Message())
			}
		}
	}

	return fmt.Errorf("%w: gemini: %v", llm.ErrGeneration, err)
}

var _ llm.Generator = (*Generator)(nil)
