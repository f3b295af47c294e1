package relay

import (
	"context"

	"notify-client/internal/services"
)

// Publisher is the part of services.RedisService the sink needs
type Publisher interface {
	PublishUserNotification(ctx context.Context, channel string, notification interface{}) error
}

// RedisSink publishes to a fixed channel, or to the per-user notification
// channel when none is configured.
type RedisSink struct {
	publisher Publisher
	channel   string
}

func NewRedisSink(publisher Publisher, channel string) *RedisSink {
	return &RedisSink{publisher: publisher, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, env Envelope) error {
	return s.publisher.PublishUserNotification(ctx, s.channelFor(env.UserID), env)
}

func (s *RedisSink) channelFor(userID string) string {
	if s.channel != "" {
		return s.channel
	}
	return services.NotificationChannel(userID)
}

// Close is a no-op; the Redis client is owned by the caller
func (s *RedisSink) Close() error { return nil }
