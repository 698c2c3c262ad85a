package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"mailguard/internal/platform/kafka/producer"
)

// KafkaSink writes events to a Kafka topic, keyed by contact id so all events
// for one contact land on the same partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaSink creates a sink publishing to the given topic.
func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	key := event.ContactID
	if key == "" {
		key = event.Email
	}

	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
	})
}
