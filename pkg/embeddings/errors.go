package embeddings

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/papercomputeco/docqa/pkg/credentials"
)

// ErrEmbedding is returned when an embedding service fails.
var ErrEmbedding = errors.New("embedding failed")

// StatusError classifies a non-200 response from an embedding service.
// Rejected credentials wrap credentials.ErrAuthentication so callers can tell
// them apart from an unavailable service.
func StatusError(provider string, status int, body string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %s returned status %d: %s", credentials.ErrAuthentication, provider, status, body)
	}
	return fmt.Errorf("%w: %s returned status %d: %s", ErrEmbedding, provider, status, body)
}
