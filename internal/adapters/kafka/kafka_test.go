package kafka

import (
	"testing"

	"notify-client/internal/config"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerConfig(t *testing.T) {
	cfg := NewProducerConfig("notify-client")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.CompressionSnappy, cfg.Producer.Compression)
	assert.Equal(t, "notify-client", cfg.ClientID)

	assert.Equal(t, "sarama", NewProducerConfig("").ClientID)
}

func TestInitKafkaProducerRequiresBrokers(t *testing.T) {
	_, err := InitKafkaProducer(config.KafkaConfig{Topic: "notifications"})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewReader(t *testing.T) {
	r := NewReader([]string{"localhost:9092"}, "notifications", "devserver")
	defer r.Close()

	assert.Equal(t, "notifications", r.Config().Topic)
	assert.Equal(t, "devserver", r.Config().GroupID)
}
