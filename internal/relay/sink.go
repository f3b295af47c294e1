package relay

import (
	"context"
	"log/slog"

	"notify-client/internal/models"
)

// Envelope is what sinks receive. It flattens the notification so the JSON is
// also a valid dev server publish request.
type Envelope struct {
	UserID string `json:"userId,omitempty"`
	models.Notification
}

// Sink forwards relayed notifications to one destination
type Sink interface {
	Name() string
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// LogSink writes every notification to a logger
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, env Envelope) error {
	s.logger.InfoContext(ctx, "Notification relayed",
		"userID", env.UserID,
		"notificationID", env.ID,
		"title", env.Title,
		"type", env.Category,
		"timestamp", env.Timestamp,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
