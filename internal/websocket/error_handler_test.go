package websocket

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyClose(t *testing.T) {
	assert.Equal(t, CloseKindNormal, ClassifyClose(1000))
	assert.Equal(t, CloseKindAuthRejected, ClassifyClose(1008))
	assert.Equal(t, CloseKindAbnormal, ClassifyClose(1006))
	assert.Equal(t, CloseKindAbnormal, ClassifyClose(1011))
	assert.Equal(t, CloseKindAbnormal, ClassifyClose(4000))
}

func TestErrorHandlerStatsAndHistory(t *testing.T) {
	var seen []ErrorEvent
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewErrorHandlerWithConfig(logger, 2, func(e ErrorEvent) { seen = append(seen, e) })

	h.LogEvent(TransportOpenError, SeverityError, "Connection failed", errors.New("refused"))
	h.LogEvent(AbnormalCloseError, SeverityWarning, "closed", nil)
	h.LogEvent(AbnormalCloseError, SeverityWarning, "closed again", nil)

	stats := h.GetErrorStats()
	assert.Equal(t, 1, stats[TransportOpenError])
	assert.Equal(t, 2, stats[AbnormalCloseError])
	assert.Len(t, seen, 3)

	recent := h.GetRecentErrors()
	if assert.Len(t, recent, 2) {
		assert.Equal(t, "closed", recent[0].Message)
		assert.Equal(t, "closed again", recent[1].Message)
	}

	h.ResetErrorStats()
	assert.Empty(t, h.GetErrorStats())
	assert.Empty(t, h.GetRecentErrors())
}

func TestAuthRejectionIsNotRecoverable(t *testing.T) {
	var last ErrorEvent
	h := NewErrorHandlerWithConfig(slog.New(slog.NewTextHandler(io.Discard, nil)), 4, func(e ErrorEvent) { last = e })

	h.LogEvent(AuthRejectedError, SeverityInfo, "rejected", nil)
	assert.False(t, last.Recoverable)

	h.LogEvent(ServerError, SeverityWarning, "server", nil)
	assert.True(t, last.Recoverable)
}
