package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes an already encoded event to the primary topic
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload []byte, eventType string) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventTypeHeader carries the event type next to the payload
const EventTypeHeader = "event-type"
