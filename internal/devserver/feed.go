package devserver

import (
	"context"
	"encoding/json"
	"errors"

	"notify-client/internal/services"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Kafka header carrying the addressee, as written by the relay
const userIDHeader = "user_id"

// MessageReader is the part of *kafkago.Reader the Kafka feed needs
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// PatternSubscriber is implemented by *services.RedisService
type PatternSubscriber interface {
	PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub
}

// RunRedisFeed pushes every record published on notifications:* until ctx
// ends. The channel suffix addresses the user when the record carries none.
func (s *Server) RunRedisFeed(ctx context.Context, sub PatternSubscriber) error {
	pubsub := sub.PSubscribe(ctx, services.NotificationChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	s.logger.Info("Redis feed subscribed", "pattern", services.NotificationChannelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.feed("redis", services.UserFromChannel(msg.Channel), []byte(msg.Payload))
		}
	}
}

// RunKafkaFeed pushes every record read from reader until ctx ends
func (s *Server) RunKafkaFeed(ctx context.Context, reader MessageReader) error {
	defer reader.Close()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		userID := ""
		for _, h := range m.Headers {
			if h.Key == userIDHeader {
				userID = string(h.Value)
			}
		}
		s.feed("kafka", userID, m.Value)
	}
}

// feed publishes one record. Records whose id this server already pushed are
// skipped: they are the relay's copy of our own push.
func (s *Server) feed(source, userID string, payload []byte) {
	var req PublishRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("Dropping malformed feed record", "source", source, "error", err)
		return
	}
	if req.UserID == "" {
		req.UserID = userID
	}
	if req.ID != "" && s.hub.Known(req.ID) {
		s.logger.Debug("Skipping already pushed notification", "source", source, "notificationID", req.ID)
		return
	}
	if _, err := s.Publish(req); err != nil {
		s.logger.Warn("Dropping feed record", "source", source, "error", err)
	}
}
