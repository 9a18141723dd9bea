package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/docqa/pkg/eventstream"
)

// ErrMockPublish is returned by MockPublisher when Fail is set.
var ErrMockPublish = errors.New("mock publish failure")

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	closed bool

	// Fail makes every Publish return ErrMockPublish.
	Fail bool

	// Block, when non-nil, is received from before each Publish returns.
	Block chan struct{}
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.Event) error {
	if m.Block != nil {
		<-m.Block
	}
	if m.Fail {
		return ErrMockPublish
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the events published so far.
func (m *MockPublisher) Events() []*eventstream.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventTypes returns the type of each published event, in order.
func (m *MockPublisher) EventTypes() []string {
	events := m.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType
	}
	return out
}

func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
