package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"notify-client/internal/models"
)

func badge(c models.Category) string {
	switch c {
	case models.CategorySuccess:
		return "[ok]"
	case models.CategoryWarning:
		return "[warn]"
	case models.CategoryError:
		return "[error]"
	default:
		return "[info]"
	}
}

// FormatTimestamp renders ts relative to now: "Just now", minutes, hours,
// then the calendar date once a day has passed.
func FormatTimestamp(ts string, now time.Time) string {
	at, err := time.Parse(models.TimestampFormat, ts)
	if err != nil {
		return ts
	}

	minutes := int(now.Sub(at) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return plural(minutes, "minute") + " ago"
	case minutes < 24*60:
		return plural(minutes/60, "hour") + " ago"
	default:
		return at.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// NotificationCard writes a single notification
func NotificationCard(w io.Writer, n models.Notification, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", badge(n.Category), n.Title)
	if n.Message != "" {
		fmt.Fprintf(&b, "    %s\n", n.Message)
	}
	fmt.Fprintf(&b, "    %s", FormatTimestamp(n.Timestamp, now))
	if n.ID != "" {
		fmt.Fprintf(&b, " | id %s", n.ID)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
