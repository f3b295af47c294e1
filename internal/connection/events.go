package connection

import (
	"errors"

	"notify-client/internal/models"
	"notify-client/internal/websocket"
)

// event is anything processed by the manager loop
type event interface{}

type actionEvent struct {
	fn   func()
	done chan struct{}
}

type openEvent struct {
	gen  uint64
	conn websocket.Conn
}

type dialFailedEvent struct {
	gen uint64
	err error
}

type messageEvent struct {
	gen  uint64
	data []byte
}

type transportErrorEvent struct {
	gen uint64
	err error
}

type closeEvent struct {
	gen    uint64
	code   int
	reason string
}

type reconnectEvent struct {
	seq uint64
}

// connHandler forwards transport callbacks of one connection attempt to the loop
type connHandler struct {
	m   *Manager
	gen uint64
}

func (h *connHandler) OnMessage(data []byte) {
	h.m.post(messageEvent{gen: h.gen, data: data})
}

func (h *connHandler) OnError(err error) {
	h.m.post(transportErrorEvent{gen: h.gen, err: err})
}

func (h *connHandler) OnClose(code int, reason string) {
	h.m.post(closeEvent{gen: h.gen, code: code, reason: reason})
}

func (m *Manager) handleEvent(ev event) {
	switch e := ev.(type) {
	case actionEvent:
		e.fn()
		close(e.done)

	case openEvent:
		m.handleOpen(e)

	case dialFailedEvent:
		if e.gen != m.gen || !m.dialing {
			return
		}
		m.dialing = false
		m.dialCancel = nil
		// A failed dial surfaces like a browser socket: error, then 1006 close.
		m.handleTransportError(e.err)
		m.handleClose(websocket.CloseAbnormal, "")

	case messageEvent:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		m.handleMessage(e.data)

	case transportErrorEvent:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		m.handleTransportError(e.err)

	case closeEvent:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		m.conn = nil
		m.handleClose(e.code, e.reason)

	case reconnectEvent:
		if e.seq != m.reconnectSeq {
			return
		}
		m.reconnectTimer = nil
		m.logger.Info("Attempting reconnect")
		if err := m.connect(); err != nil {
			m.logger.Warn("Reconnect failed", "error", err)
		}
	}
}

func (m *Manager) handleOpen(e openEvent) {
	if e.gen != m.gen || !m.dialing {
		// Superseded by a disconnect while the handshake was in flight.
		e.conn.Close(websocket.CloseNormal, "superseded")
		return
	}

	m.dialing = false
	m.dialCancel = nil
	m.conn = e.conn
	m.transition(InputOpen)
	m.logger.Info("WebSocket connection opened, awaiting welcome")

	e.conn.Start(&connHandler{m: m, gen: e.gen})
}

func (m *Manager) handleTransportError(err error) {
	m.state.Error = MsgConnectionFailed
	m.transition(InputTransportError)
	m.errors.Record(websocket.ErrorEvent{
		Type:         websocket.TransportOpenError,
		Severity:     websocket.SeverityError,
		ConnectionID: m.state.ConnectionID,
		Message:      MsgConnectionFailed,
		Error:        err,
		Recoverable:  true,
	})
}

func (m *Manager) handleClose(code int, reason string) {
	m.state.clearIdentity()
	m.transition(InputClose)

	switch websocket.ClassifyClose(code) {
	case websocket.CloseKindNormal:
		m.state.Error = ""
		m.logger.Info("WebSocket connection closed", "code", code, "reason", reason)

	case websocket.CloseKindAuthRejected:
		m.state.Error = ""
		var err error
		if reason != "" {
			err = errors.New(reason)
		}
		m.errors.LogEvent(websocket.AuthRejectedError, websocket.SeverityWarning,
			"Authentication failed, not reconnecting", err)

	default:
		m.state.Error = MsgClosedUnexpected
		m.errors.LogEvent(websocket.AbnormalCloseError, websocket.SeverityWarning, MsgClosedUnexpected, nil)
		m.scheduleReconnect()
	}
}

func (m *Manager) handleMessage(raw []byte) {
	msg, err := websocket.DecodeInbound(raw)
	if err != nil {
		m.malformed(err)
		return
	}

	switch msg.Type {
	case websocket.MessageTypeWelcome:
		data, err := msg.Welcome()
		if err != nil {
			m.malformed(err)
			return
		}
		m.handleWelcome(data)

	case websocket.MessageTypeNotification:
		data, err := msg.Notification()
		if err != nil {
			m.malformed(err)
			return
		}
		m.handleNotification(data)

	case websocket.MessageTypeReadAck:
		data, err := msg.ReadAck()
		if err != nil {
			m.malformed(err)
			return
		}
		m.logger.Debug("Read acknowledgment received",
			"notificationID", data.NotificationID, "connectionID", data.ConnectionID, "success", data.Success)
		if !data.Success {
			m.logger.Warn("Failed to mark notification as read", "notificationID", data.NotificationID)
		}

	case websocket.MessageTypeError:
		data, err := msg.ServerError()
		if err != nil {
			m.malformed(err)
			return
		}
		m.state.Error = data.Text()
		m.transition(InputServerError)
		m.errors.LogEvent(websocket.ServerError, websocket.SeverityWarning, data.Text(), nil)

	default:
		m.logger.Debug("Unknown message type", "type", msg.Type)
	}
}

func (m *Manager) handleWelcome(data *websocket.WelcomeData) {
	m.state.UserID = data.UserID
	m.state.ConnectionID = data.ConnectionID
	m.state.Error = ""
	m.transition(InputWelcome)

	m.logger.Info("Connection established",
		"userID", data.UserID, "connectionID", data.ConnectionID, "message", data.Message)

	m.flushPending()
}

func (m *Manager) handleNotification(data *websocket.NotificationData) {
	n := data.ToNotification(m.now())

	list := make([]models.Notification, 0, len(m.state.Notifications)+1)
	list = append(list, n)
	m.state.Notifications = append(list, m.state.Notifications...)

	m.logger.Info("Notification received", "notificationID", n.ID, "title", n.Title)

	if m.onNotification != nil {
		m.onNotification(m.state.UserID, n)
	}

	if n.ID == "" {
		m.logger.Warn("Notification without id received")
	}
	m.sendReadAck(n.ID)
}

func (m *Manager) malformed(err error) {
	m.errors.LogEvent(websocket.MalformedError, websocket.SeverityInfo, "Failed to parse WebSocket message", err)
}
