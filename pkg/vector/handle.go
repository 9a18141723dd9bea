package vector

import "sync/atomic"

// Handle publishes the current Index to concurrent readers. Readers take a
// snapshot with Load and query it in full; a Publish never affects a
// snapshot already taken.
type Handle struct {
	current atomic.Pointer[Index]
}

// NewHandle returns a Handle serving ix, or an empty index when ix is nil.
func NewHandle(ix *Index) *Handle {
	h := &Handle{}
	h.Publish(ix)
	return h
}

// Load returns the current snapshot. It is never nil.
func (h *Handle) Load() *Index {
	return h.current.Load()
}

// Publish atomically replaces the current snapshot.
func (h *Handle) Publish(ix *Index) {
	if ix == nil {
		ix = Empty()
	}
	h.current.Store(ix)
}
