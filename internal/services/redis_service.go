package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"notify-client/internal/database"

	"github.com/redis/go-redis/v9"
)

const (
	// NotificationChannelPrefix namespaces per-user notification channels
	NotificationChannelPrefix = "notifications:"

	// BroadcastChannel carries notifications addressed to every user
	BroadcastChannel = NotificationChannelPrefix + "broadcast"

	onlineUsersKey = "online_users"
)

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// NotificationChannel names the pub/sub channel for userID
func NotificationChannel(userID string) string {
	if userID == "" {
		return BroadcastChannel
	}
	return NotificationChannelPrefix + userID
}

// UserFromChannel reverses NotificationChannel; broadcast yields ""
func UserFromChannel(channel string) string {
	if channel == BroadcastChannel || len(channel) <= len(NotificationChannelPrefix) {
		return ""
	}
	return channel[len(NotificationChannelPrefix):]
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}

	slog.Debug("User set to online", "userID", userID)
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}

	slog.Debug("User set to offline", "userID", userID)
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, onlineUsersKey, userID).Result()
}

func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.GetClient().SMembers(ctx, onlineUsersKey).Result()
}

// =============================================================================
// PubSub Operations
// =============================================================================

// PublishUserNotification publishes notification as JSON on channel
func (r *RedisService) PublishUserNotification(ctx context.Context, channel string, notification interface{}) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := r.client.GetClient().Publish(ctx, channel, data).Err(); err != nil {
		slog.Error("Failed to publish user notification", "channel", channel, "error", err)
		return err
	}

	slog.Debug("Published user notification", "channel", channel)
	return nil
}

func (r *RedisService) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return r.client.GetClient().Subscribe(ctx, channels...)
}

func (r *RedisService) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return r.client.GetClient().PSubscribe(ctx, patterns...)
}
