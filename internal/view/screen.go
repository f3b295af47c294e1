package view

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"notify-client/internal/auth"
	"notify-client/internal/connection"
)

const clearSequence = "\033[H\033[2J"

// Screen is the root view. It re-renders on every state it receives.
type Screen struct {
	w       io.Writer
	now     func() time.Time
	token   func() string
	clear   bool
	mu      sync.Mutex
	renders int
}

type ScreenOption func(*Screen)

// WithScreenClock overrides the clock used for relative timestamps
func WithScreenClock(now func() time.Time) ScreenOption {
	return func(s *Screen) { s.now = now }
}

// WithTokenSource lets the header show the token prefix while not connected
func WithTokenSource(token func() string) ScreenOption {
	return func(s *Screen) { s.token = token }
}

// WithClearScreen clears the terminal before each render
func WithClearScreen() ScreenOption {
	return func(s *Screen) { s.clear = true }
}

func NewScreen(w io.Writer, opts ...ScreenOption) *Screen {
	s := &Screen{w: w, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render writes the full screen for state in one write
func (s *Screen) Render(state connection.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if s.clear {
		buf.WriteString(clearSequence)
	}

	buf.WriteString("Notification Center\n")
	buf.WriteString(s.identityLine(state))
	buf.WriteString("\n\n")

	if err := StatusIndicator(&buf, state); err != nil {
		return err
	}

	// Notifications are only shown while connected.
	if state.IsConnected {
		fmt.Fprintf(&buf, "\nConnected to WebSocket Server\nUser ID: %s | Connection ID: %s\n\n",
			state.UserID, truncate(state.ConnectionID, 12))
		if err := NotificationList(&buf, state.Notifications, s.now()); err != nil {
			return err
		}
	}

	s.renders++
	_, err := s.w.Write(buf.Bytes())
	return err
}

func (s *Screen) identityLine(state connection.State) string {
	if state.IsConnected && state.UserID != "" {
		line := "Connected as: " + state.UserID
		if state.ConnectionID != "" {
			line += fmt.Sprintf(" (ID: %s)", truncate(state.ConnectionID, 8))
		}
		return line
	}
	if s.token != nil {
		if token := s.token(); token != "" {
			return "Token: " + truncate(token, 10) + s.claimsSuffix(token)
		}
	}
	return "Set a token to connect"
}

// claimsSuffix describes a JWT's subject and expiry; opaque tokens get nothing
func (s *Screen) claimsSuffix(token string) string {
	claims, err := auth.Inspect(token)
	if err != nil {
		return ""
	}
	switch {
	case claims.ExpiresAt.IsZero():
		return fmt.Sprintf(" (user %s)", claims.UserID)
	case claims.Expired(s.now()):
		return fmt.Sprintf(" (user %s, expired)", claims.UserID)
	default:
		return fmt.Sprintf(" (user %s, expires %s)", claims.UserID, claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
}

// Renders reports how many times the screen has been drawn
func (s *Screen) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Run renders every state from states until the channel closes or ctx ends
func (s *Screen) Run(ctx context.Context, states <-chan connection.State) error {
	for {
		select {
		case state, ok := <-states:
			if !ok {
				return nil
			}
			if err := s.Render(state); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
