package credentials

import (
	"errors"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	googleKeyInvalidReason  = "API_KEY_INVALID"
	googleKeyInvalidMessage = "api key not valid"
)

// GoogleKeyRejected reports whether err is a Google API refusing the API key.
// The Generative Language API answers a bad key with 400 INVALID_ARGUMENT,
// not 401, so the status code alone does not identify it.
func GoogleKeyRejected(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.Reason() == googleKeyInvalidReason {
		return true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		for _, item := range gErr.Errors {
			if item.Reason == googleKeyInvalidReason {
				return true
			}
		}
		for _, d := range gErr.Details {
			if m, ok := d.(map[string]any); ok && m["reason"] == googleKeyInvalidReason {
				return true
			}
		}
		return gErr.Code == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(gErr.Message), googleKeyInvalidMessage)
	}

	if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
		return strings.Contains(strings.ToLower(st.Message()), googleKeyInvalidMessage)
	}
	return false
}
