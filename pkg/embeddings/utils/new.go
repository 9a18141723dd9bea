// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/embeddings/cache"
	"github.com/papercomputeco/docqa/pkg/embeddings/gemini"
	"github.com/papercomputeco/docqa/pkg/embeddings/hashing"
	"github.com/papercomputeco/docqa/pkg/embeddings/ollama"
	"github.com/papercomputeco/docqa/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string

	// Dimensions sizes the hashing embedder. Ignored by other providers.
	Dimensions int

	// CacheTTL enables the vector cache when positive.
	CacheTTL time.Duration
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "gemini":
		e, err = gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:   o.APIKey,
			Model:    o.Model,
			Endpoint: o.TargetURL,
		})
	case "hashing":
		e = hashing.NewEmbedder(o.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheTTL > 0 {
		e = cache.New(e, o.CacheTTL)
	}
	return e, nil
}

// NeedsAPIKey reports whether the provider authenticates with an API key.
func NeedsAPIKey(provider string) bool {
	return provider == "openai" || provider == "gemini"
}
