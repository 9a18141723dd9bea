package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/docqa/pkg/credentials"
)

var (
	// ErrGeneration is returned when a language model call fails.
	ErrGeneration = errors.New("generation failed")

	// ErrInputTooLarge is returned when the prompt exceeds the model's
	// context window. It also matches ErrGeneration.
	ErrInputTooLarge = fmt.Errorf("%w: input too large for the model", ErrGeneration)
)

// contextOverflowMarkers are lowercase fragments providers use when a
// prompt does not fit the model.
var contextOverflowMarkers = []string{
	"context length",
	"context_length_exceeded",
	"context window",
	"maximum context",
	"prompt is too long",
	"too many tokens",
	"request too large",
	"exceeds the maximum number of tokens",
}

// IsContextOverflow reports whether a provider error message describes a
// prompt that exceeds the model's context window.
func IsContextOverflow(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range contextOverflowMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// StatusError classifies a failed response from a provider.
func StatusError(provider string, status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d: %s", credentials.ErrAuthentication, provider, status, body)
	case status == http.StatusRequestEntityTooLarge || IsContextOverflow(body):
		return fmt.Errorf("%w: %s returned status %d: %s", ErrInputTooLarge, provider, status, body)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrGeneration, provider, status, body)
	}
}
