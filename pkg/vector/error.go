package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when vectors of different lengths meet
	// in one index or query.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrCorrupt is returned when a stored index cannot be decoded.
	ErrCorrupt = errors.New("stored index is corrupt")
)
