package devserver

import (
	"log/slog"
	"sync"
	"time"

	"notify-client/internal/websocket"

	gorilla "github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Session is one upgraded client connection
type Session struct {
	id     string
	userID string
	conn   *gorilla.Conn
	send   chan []byte
	hub    *Hub
	logger *slog.Logger

	closeOnce sync.Once
}

func newSession(hub *Hub, conn *gorilla.Conn, userID, connectionID string) *Session {
	return &Session{
		id:     connectionID,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		logger: hub.logger.With("connectionID", connectionID, "userID", userID),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

func (s *Session) queue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend ends writePump, which sends a normal close frame
func (s *Session) closeSend() {
	s.closeOnce.Do(func() { close(s.send) })
}

func (s *Session) reply(msg *websocket.ServerMessage) {
	frame, err := msg.Encode()
	if err != nil {
		s.logger.Error("Failed to encode reply", "type", msg.Type, "error", err)
		return
	}
	if !s.queue(frame) {
		s.logger.Warn("Send buffer full, dropping reply", "type", msg.Type)
	}
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	s.conn.SetPingHandler(func(appData string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := s.conn.WriteControl(gorilla.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if err == gorilla.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
				s.logger.Warn("Session read error", "error", err)
			} else {
				s.logger.Debug("Session closed", "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handleMessage(data)
	}
}

func (s *Session) handleMessage(data []byte) {
	msg, err := websocket.DecodeInbound(data)
	if err != nil {
		s.reply(websocket.NewErrorMessage("Invalid message", err.Error()))
		return
	}

	switch msg.Type {
	case websocket.MessageTypeRead:
		read, err := msg.Read()
		if err != nil {
			s.reply(websocket.NewErrorMessage("Invalid message", err.Error()))
			return
		}
		known := s.hub.Known(read.NotificationID)
		s.logger.Debug("Read acknowledgment", "notificationID", read.NotificationID, "known", known)
		s.reply(websocket.NewReadAckMessage(read.NotificationID, s.id, known))

	case websocket.MessageTypePing:
		s.logger.Debug("Application ping")

	default:
		s.reply(websocket.NewErrorMessage("Unknown message type", string(msg.Type)))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				s.conn.WriteMessage(gorilla.CloseMessage,
					gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "Server shutting down"))
				return
			}
			if err := s.conn.WriteMessage(gorilla.TextMessage, frame); err != nil {
				s.logger.Debug("Error writing message", "error", err)
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(gorilla.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("Error sending ping", "error", err)
				return
			}
		}
	}
}
