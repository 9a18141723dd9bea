// Package gemini implements pkg/embeddings' Embedder for Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/embeddings"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = "text-embedding-004"

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	APIKey string
	Model  string

	// Endpoint overrides the Generative Language API URL.
	Endpoint string
}

// Embedder wraps a Gemini embedding model.
type Embedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewEmbedder creates a Gemini embedder. An API key is required.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini embedder requires an API key", credentials.ErrAuthentication)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", embeddings.ErrEmbedding, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client: client,
		model:  client.EmbeddingModel(model),
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		if credentials.GoogleKeyRejected(err) {
			return nil, fmt.Errorf("%w: gemini rejected the API key: %v", credentials.ErrAuthentication, err)
		}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, embeddings.StatusError("gemini", apiErr.Code, apiErr.Message)
		}
		if st, ok := status.FromError(err); ok {
			if c := st.Code(); c == codes.Unauthenticated || c == codes.PermissionDenied {
				return nil, fmt.Errorf("%w: gemini: %s", credentials.ErrAuthentication, st.Message())
			}
		}
		return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbedding, err)
	}

	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	values := resp.Embedding.Values
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// Close closes the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
