// Package openai implements pkg/llm's Generator for OpenAI-compatible chat
// completion APIs. Groq is served through its OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/llm"
)

// GeneratorConfig holds configuration for the OpenAI generator.
type GeneratorConfig struct {
	// Provider is llm.OpenAI or llm.Groq. It selects model aliases, the
	// default model and, for Groq, the default base URL.
	Provider string

	APIKey  string
	BaseURL string
	Model   string

	// MaxTokens caps the answer length when positive.
	MaxTokens int
}

// Generator calls the chat completions endpoint.
type Generator struct {
	client    openai.Client
	provider  string
	model     string
	maxTokens int
}

// NewGenerator creates an OpenAI-compatible generator. An API key is required.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = llm.OpenAI
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s generator requires an API key", credentials.ErrAuthentication, provider)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" && provider == llm.Groq {
		baseURL = llm.GroqBaseURL
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Generator{
		client:    openai.NewClient(opts...),
		provider:  provider,
		model:     llm.ResolveModel(provider, cfg.Model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Model returns the resolved model ID.
func (g *Generator) Model() string {
	return g.model
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", llm.StatusError(g.provider, apiErr.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %s: %v", llm.ErrGeneration, g.provider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", llm.ErrGeneration, g.provider)
	}

	return resp.Choices[0].Message.Content, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

var _ llm.Generator = (*Generator)(nil)
