// Package llm defines the Generator that turns an assembled prompt into an
// answer, plus the errors its providers report.
package llm

import "context"

// Generator sends a prompt to a language model and returns its text.
// Calls are made once: docqa never retries a generation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Close releases any resources held by the generator.
	Close() error
}
