package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrMockEmbedding is returned by MockEmbedder when FailOn matches.
var ErrMockEmbedding = errors.New("mock embedding failure")

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// FailWith replaces ErrMockEmbedding as the failure when set.
	FailWith error

	calls atomic.Int64
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)

	if m.FailOn != "" && text == m.FailOn {
		failure := m.FailWith
		if failure == nil {
			failure = ErrMockEmbedding
		}
		return nil, fmt.Errorf("%w for: %s", failure, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// Calls returns how many times Embed was called.
func (m *MockEmbedder) Calls() int {
	return int(m.calls.Load())
}

func (m *MockEmbedder) Close() error {
	return nil
}
