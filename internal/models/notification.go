package models

import "time"

// TimestampFormat matches the ISO-8601 form browsers produce for Date.toISOString.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Category is the visual severity of a notification.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
)

// String returns the string representation of the Category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the Category is a known enum value
func (c Category) IsValid() bool {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError:
		return true
	default:
		return false
	}
}

// ParseCategory returns the category named by s, or CategoryInfo when s is
// empty or unknown.
func ParseCategory(s string) Category {
	c := Category(s)
	if c.IsValid() {
		return c
	}
	return CategoryInfo
}

/** --------------------ENTITIES-------------------- */

// Notification is a single delivery received from the push server.
type Notification struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Category  Category `json:"type"`
}

// NewNotification builds a Notification stamped with receivedAt. message wins
// over body when both are present.
func NewNotification(id, title, message, body string, category Category, receivedAt time.Time) Notification {
	text := message
	if text == "" {
		text = body
	}
	if !category.IsValid() {
		category = CategoryInfo
	}
	return Notification{
		ID:        id,
		Title:     title,
		Message:   text,
		Timestamp: receivedAt.UTC().Format(TimestampFormat),
		Category:  category,
	}
}

// ReceivedAt parses the notification timestamp back into a time.Time.
func (n Notification) ReceivedAt() (time.Time, error) {
	return time.Parse(TimestampFormat, n.Timestamp)
}
