package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationMessageFallback(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 123000000, time.UTC)

	t.Run("BodyOnly", func(t *testing.T) {
		n := NewNotification("n1", "T", "", "X", "", now)
		assert.Equal(t, "X", n.Message)
	})

	t.Run("MessageWins", func(t *testing.T) {
		n := NewNotification("n1", "T", "M", "X", "", now)
		assert.Equal(t, "M", n.Message)
	})

	t.Run("NeitherPresent", func(t *testing.T) {
		n := NewNotification("n1", "T", "", "", "", now)
		assert.Empty(t, n.Message)
	})
}

func TestNewNotificationTimestamp(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	received := time.Date(2024, 5, 1, 14, 30, 0, 123000000, loc)

	n := NewNotification("n1", "T", "M", "", CategoryWarning, received)

	assert.Equal(t, "2024-05-01T12:30:00.123Z", n.Timestamp)
	parsed, err := n.ReceivedAt()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(received))
}

func TestCategory(t *testing.T) {
	assert.True(t, CategoryError.IsValid())
	assert.False(t, Category("critical").IsValid())

	assert.Equal(t, CategorySuccess, ParseCategory("success"))
	assert.Equal(t, CategoryInfo, ParseCategory(""))
	assert.Equal(t, CategoryInfo, ParseCategory("critical"))

	n := NewNotification("n1", "T", "M", "", Category("bogus"), time.Now())
	assert.Equal(t, CategoryInfo, n.Category)
}
