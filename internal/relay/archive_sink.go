package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
)

// ObjectStore is implemented by storage.MinIOClient
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// ArchiveSink stores each notification as a JSON object
type ArchiveSink struct {
	store  ObjectStore
	logger *slog.Logger
}

func NewArchiveSink(store ObjectStore, logger *slog.Logger) *ArchiveSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveSink{store: store, logger: logger}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	url, err := s.store.PutObject(ctx, ObjectName(env), data, "application/json")
	if err != nil {
		return err
	}
	s.logger.Debug("Notification archived", "notificationID", env.ID, "url", url)
	return nil
}

func (s *ArchiveSink) Close() error { return nil }

// ObjectName places a notification under notifications/yyyy/mm/dd/<id>.json,
// dated by its receive time.
func ObjectName(env Envelope) string {
	at, err := env.ReceivedAt()
	if err != nil {
		at = time.Now().UTC()
	}
	id := strings.ReplaceAll(env.ID, "/", "_")
	if id == "" {
		id = fmt.Sprintf("unknown-%d", at.UnixNano())
	}
	return path.Join("notifications", at.Format("2006/01/02"), id+".json")
}
