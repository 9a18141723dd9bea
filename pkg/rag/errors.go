package rag

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/docqa/pkg/vector"
)

var (
	// ErrRetrievalUnavailable is returned when the question could not be
	// embedded or the index could not be queried. It never wraps an
	// authentication failure.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// GenerationError reports a failed language model call together with the
// prompt that was sent and the sources it was built from.
type GenerationError struct {
	Prompt  string
	Sources []vector.Result
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating answer: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
