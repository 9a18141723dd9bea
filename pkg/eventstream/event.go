// Package eventstream defines the events docqa emits when it rebuilds an
// index or answers a question, and the publishers that deliver them.
package eventstream

import (
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeIndexBuilt is emitted after a rebuilt index is published.
	EventTypeIndexBuilt = "docqa.index.built"

	// EventTypeQuestionAnswered is emitted after the pipeline answers a question.
	EventTypeQuestionAnswered = "docqa.question.answered"
)

// Event is a transport-neutral event envelope. Exactly one payload is set,
// matching EventType.
type Event struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	IndexBuilt       *IndexBuilt       `json:"index_built,omitempty"`
	QuestionAnswered *QuestionAnswered `json:"question_answered,omitempty"`
}

// EventSource identifies the emitting process.
type EventSource struct {
	Service string `json:"service"`
	Host    string `json:"host,omitempty"`
}

// IndexBuilt describes a completed rebuild.
type IndexBuilt struct {
	Documents  int      `json:"documents"`
	Chunks     int      `json:"chunks"`
	Dimension  int      `json:"dimension"`
	Sources    []string `json:"sources,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// QuestionAnswered describes one answered question.
type QuestionAnswered struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Grounded   bool     `json:"grounded"`
	Sources    []string `json:"sources,omitempty"`
	TopScore   float64  `json:"top_score,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// Key returns the partition key for the event: the event type, so events
// of one kind stay ordered.
func (e *Event) Key() string {
	return e.EventType
}

func newEvent(eventType string) *Event {
	host, _ := os.Hostname()
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        EventSource{Service: "docqa", Host: host},
	}
}

// NewIndexBuilt returns an index.built event.
func NewIndexBuilt(payload IndexBuilt) *Event {
	e := newEvent(EventTypeIndexBuilt)
	e.IndexBuilt = &payload
	return e
}

// NewQuestionAnswered returns a question.answered event.
func NewQuestionAnswered(payload QuestionAnswered) *Event {
	e := newEvent(EventTypeQuestionAnswered)
	e.QuestionAnswered = &payload
	return e
}
