package kafka

import (
	"errors"

	"notify-client/internal/config"

	"github.com/IBM/sarama"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// InitKafkaProducer creates the synchronous producer used by the relay
func InitKafkaProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
}

// NewProducerConfig returns the producer settings: acks from all replicas,
// snappy compression and key hashing so one notification id maps to one partition.
func NewProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Producer.MaxMessageBytes = 1000000 // 1MB
	return config
}
