package connection

import "notify-client/internal/models"

// State is a read-only snapshot of the connection manager.
type State struct {
	IsConnected        bool                  `json:"isConnected"`
	IsConnecting       bool                  `json:"isConnecting"`
	Error              string                `json:"error,omitempty"`
	UserID             string                `json:"userId,omitempty"`
	ConnectionID       string                `json:"connectionId,omitempty"`
	Notifications      []models.Notification `json:"notifications"`
	PendingAcks        int                   `json:"pendingAcks"`
	ReconnectScheduled bool                  `json:"reconnectScheduled"`
}

// Phase derives the lifecycle stage from the flags and error field
func (s State) Phase() Phase {
	switch {
	case s.IsConnected:
		return PhaseConnected
	case s.IsConnecting:
		return PhaseConnecting
	case s.Error != "":
		return PhaseErrored
	default:
		return PhaseDisconnected
	}
}

// HasIdentity reports whether a handshake has been processed
func (s State) HasIdentity() bool {
	return s.UserID != "" && s.ConnectionID != ""
}

func (s State) clone() State {
	out := s
	out.Notifications = make([]models.Notification, len(s.Notifications))
	copy(out.Notifications, s.Notifications)
	return out
}

func (s *State) setPhase(p Phase) {
	s.IsConnected = p == PhaseConnected
	s.IsConnecting = p == PhaseConnecting
}

func (s *State) clearIdentity() {
	s.UserID = ""
	s.ConnectionID = ""
}
