// Package llmutils builds Generators from provider settings.
package llmutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/anthropic"
	"github.com/papercomputeco/docqa/pkg/llm/gemini"
	"github.com/papercomputeco/docqa/pkg/llm/ollama"
	"github.com/papercomputeco/docqa/pkg/llm/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	MaxTokens    int
}

func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case llm.Ollama:
		return ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case llm.OpenAI, llm.Groq:
		return openai.NewGenerator(openai.GeneratorConfig{
			Provider:  o.ProviderType,
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	case llm.Anthropic:
		return anthropic.NewGenerator(anthropic.GeneratorConfig{
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
		})
	case llm.Gemini:
		return gemini.NewGenerator(ctx, gemini.GeneratorConfig{
			APIKey:    o.APIKey,
			Model:     o.Model,
			MaxTokens: o.MaxTokens,
			Endpoint:  o.TargetURL,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q (supported: %v)", o.ProviderType, llm.SupportedProviders())
	}
}

// NeedsAPIKey reports whether the provider authenticates with an API key.
func NeedsAPIKey(provider string) bool {
	return provider != llm.Ollama
}
