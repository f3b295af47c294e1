package kafka

import (
	kafkago "github.com/segmentio/kafka-go"
)

// NewReader creates a consumer-group reader for topic. The dev server uses it
// to replay notifications that a client relayed to Kafka.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
}
