package view

import (
	"fmt"
	"io"
	"time"

	"notify-client/internal/models"
)

const (
	emptyTitle = "No notifications yet"
	emptyHint  = "Notifications will appear here when they arrive"
)

// NotificationList writes the header and one card per notification, in the
// order given (the manager keeps newest first).
func NotificationList(w io.Writer, list []models.Notification, now time.Time) error {
	if len(list) == 0 {
		_, err := fmt.Fprintf(w, "%s\n%s\n", emptyTitle, emptyHint)
		return err
	}

	if _, err := fmt.Fprintf(w, "Notifications (%d)  [clear: DELETE /api/v1/notifications]\n", len(list)); err != nil {
		return err
	}
	for _, n := range list {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := NotificationCard(w, n, now); err != nil {
			return err
		}
	}
	return nil
}
