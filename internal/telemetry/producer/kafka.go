// Package producer publishes decision telemetry events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"adaptive-auth/backend/internal/telemetry"
)

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer implements telemetry.EventEmitter using segmentio/kafka-go.
type KafkaProducer struct {
	writer MessageWriter
	topic  string
}

// NewKafkaProducer creates a producer that writes events to topic. It returns nil when brokers or
// topic are empty so callers can treat Kafka as optional. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return NewKafkaProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}, topic)
}

// NewKafkaProducerWithWriter wraps an existing writer.
func NewKafkaProducerWithWriter(w MessageWriter, topic string) *KafkaProducer {
	return &KafkaProducer{writer: w, topic: topic}
}

// Emit serializes the event as JSON keyed by user id so a user's decisions stay ordered.
func (p *KafkaProducer) Emit(ctx context.Context, event *telemetry.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var key []byte
	if event.UserID != "" {
		key = []byte(event.UserID)
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{Key: key, Value: payload})
}

// Close closes the Kafka writer. Safe to call on a nil producer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
