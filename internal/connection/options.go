package connection

import (
	"log/slog"
	"time"

	"notify-client/internal/models"
	"notify-client/internal/websocket"
)

// Option configures a Manager
type Option func(*Manager)

// WithDialer replaces the gorilla transport
func WithDialer(d websocket.Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithErrorHandler shares an error handler, e.g. with a monitoring callback
func WithErrorHandler(h *websocket.ErrorHandler) Option {
	return func(m *Manager) {
		if h != nil {
			m.errors = h
		}
	}
}

// WithClock sets the time source for notification timestamps and outbound envelopes
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// WithToken sets the initial credential without connecting
func WithToken(token string) Option {
	return func(m *Manager) { m.token = token }
}

// WithNotificationHook is called on the event loop after each notification is
// stored. It must not block.
func WithNotificationHook(fn func(userID string, n models.Notification)) Option {
	return func(m *Manager) { m.onNotification = fn }
}
