package eventstream

import "errors"

var (
	// ErrNilEvent indicates a nil event was provided to a publisher.
	ErrNilEvent = errors.New("nil event")

	// ErrPublish wraps failures delivering an event to the backend.
	ErrPublish = errors.New("publishing event failed")
)
