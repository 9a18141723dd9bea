package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageWriter exposes messageWriter to tests.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewPublisherWithWriter builds a Publisher around a test writer.
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return newPublisher(w)
}
