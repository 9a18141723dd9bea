package testutils

import (
	"context"
	"sync"
)

// MockGenerator is a test llm.Generator. By default it echoes the prompt.
type MockGenerator struct {
	// Reply, when set, is returned for every prompt.
	Reply string

	// Fn, when set, computes the reply. It takes precedence over Reply.
	Fn func(prompt string) (string, error)

	// Err, when set, fails every call.
	Err error

	mu      sync.Mutex
	prompts []string
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	switch {
	case m.Err != nil:
		return "", m.Err
	case m.Fn != nil:
		return m.Fn(prompt)
	case m.Reply != "":
		return m.Reply, nil
	default:
		return prompt, nil
	}
}

// Prompts returns every prompt received, in order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockGenerator) LastPrompt() string {
	p := m.Prompts()
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (m *MockGenerator) Close() error {
	return nil
}
