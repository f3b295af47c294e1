// Package view renders connection state as plain text. Views only read
// connection.State snapshots; actions go through the manager.
package view

import (
	"fmt"
	"io"
	"strings"

	"notify-client/internal/connection"
)

// StatusText is the one-word label of the indicator
func StatusText(s connection.State) string {
	switch s.Phase() {
	case connection.PhaseConnected:
		return "Connected"
	case connection.PhaseConnecting:
		return "Connecting..."
	case connection.PhaseErrored:
		return "Connection Error"
	default:
		return "Disconnected"
	}
}

func statusIcon(s connection.State) string {
	switch s.Phase() {
	case connection.PhaseConnected:
		return "(o)"
	case connection.PhaseConnecting:
		return "(~)"
	case connection.PhaseErrored:
		return "(!)"
	default:
		return "( )"
	}
}

// StatusIndicator writes the status line, plus the error text and a retry
// hint when the state carries an error.
func StatusIndicator(w io.Writer, s connection.State) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", statusIcon(s), StatusText(s))
	if s.ReconnectScheduled {
		b.WriteString(" (reconnect scheduled)")
	}
	b.WriteString("\n")
	if s.Error != "" {
		fmt.Fprintf(&b, "    Error: %s\n", s.Error)
		b.WriteString("    Retry: POST /api/v1/connect\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
