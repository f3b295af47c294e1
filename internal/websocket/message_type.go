package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notify-client/internal/models"
)

// ErrMalformedMessage is returned when an inbound frame is not a valid envelope
var ErrMalformedMessage = errors.New("malformed message")

// MessageType represents the type of WebSocket message using a custom enum type for better type safety
type MessageType string

// WebSocket message types of the notification protocol
const (
	// Server -> client
	MessageTypeWelcome      MessageType = "welcome"
	MessageTypeNotification MessageType = "notification"
	MessageTypeReadAck      MessageType = "read_ack"
	MessageTypeError        MessageType = "error"

	// Client -> server
	MessageTypeRead MessageType = "read"
	MessageTypePing MessageType = "ping"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the MessageType is a valid enum value
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeWelcome, MessageTypeNotification, MessageTypeReadAck,
		MessageTypeError, MessageTypeRead, MessageTypePing:
		return true
	default:
		return false
	}
}

// GetAllMessageTypes returns all valid message types for documentation and validation
func GetAllMessageTypes() []MessageType {
	return []MessageType{
		MessageTypeWelcome, MessageTypeNotification, MessageTypeReadAck,
		MessageTypeError, MessageTypeRead, MessageTypePing,
	}
}

// OutboundMessage is the envelope the client writes to the server.
type OutboundMessage struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Encode serializes the message for the wire
func (m *OutboundMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// InboundMessage is the envelope received from the server. Data is decoded
// lazily by the typed accessors below.
type InboundMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeInbound parses a raw frame into an envelope
func DecodeInbound(raw []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

func (m *InboundMessage) decodeData(v any) error {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return fmt.Errorf("%w: %s message has no data", ErrMalformedMessage, m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedMessage, m.Type, err)
	}
	return nil
}

// Welcome decodes the handshake payload
func (m *InboundMessage) Welcome() (*WelcomeData, error) {
	var d WelcomeData
	if err := m.decodeData(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Notification decodes a notification payload
func (m *InboundMessage) Notification() (*NotificationData, error) {
	var d NotificationData
	if err := m.decodeData(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadAck decodes a read acknowledgment response
func (m *InboundMessage) ReadAck() (*ReadAckData, error) {
	var d ReadAckData
	if err := m.decodeData(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ServerError decodes a server reported error
func (m *InboundMessage) ServerError() (*ErrorData, error) {
	var d ErrorData
	if err := m.decodeData(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Read decodes a client read acknowledgment
func (m *InboundMessage) Read() (*ReadData, error) {
	var d ReadData
	if err := m.decodeData(&d); err != nil {
		return nil, err
	}
	if d.NotificationID == "" {
		return nil, fmt.Errorf("%w: read without notificationId", ErrMalformedMessage)
	}
	return &d, nil
}

// Message data structures for different message types
type WelcomeData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	Message      string `json:"message,omitempty"`
}

type NotificationData struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// ToNotification builds the client-side entity, stamped with receivedAt
func (d *NotificationData) ToNotification(receivedAt time.Time) models.Notification {
	return models.NewNotification(d.ID, d.Title, d.Message, d.Body, models.ParseCategory(d.Type), receivedAt)
}

type ReadAckData struct {
	NotificationID string `json:"notificationId"`
	ConnectionID   string `json:"connectionId"`
	Success        bool   `json:"success"`
}

type ErrorData struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Text combines error and details the way the status line shows them
func (d *ErrorData) Text() string {
	return fmt.Sprintf("%s: %s", d.Error, d.Details)
}

type ReadData struct {
	NotificationID string `json:"notificationId"`
	ConnectionID   string `json:"connectionId"`
}

// Message constructors for type safety and consistency

// NewReadMessage creates a read acknowledgment for notificationID
func NewReadMessage(notificationID, connectionID string, now time.Time) *OutboundMessage {
	return &OutboundMessage{
		Type: MessageTypeRead,
		Data: ReadData{
			NotificationID: notificationID,
			ConnectionID:   connectionID,
		},
		Timestamp: now.UnixMilli(),
	}
}

// NewPingMessage creates an application-level ping
func NewPingMessage(now time.Time) *OutboundMessage {
	return &OutboundMessage{
		Type:      MessageTypePing,
		Data:      struct{}{},
		Timestamp: now.UnixMilli(),
	}
}

// ServerMessage is the envelope written by the push server.
type ServerMessage struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Encode serializes the message for the wire
func (m *ServerMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewWelcomeMessage creates the handshake confirmation
func NewWelcomeMessage(userID, connectionID, text string) *ServerMessage {
	return &ServerMessage{
		Type: MessageTypeWelcome,
		Data: WelcomeData{UserID: userID, ConnectionID: connectionID, Message: text},
	}
}

// NewNotificationMessage creates a notification push
func NewNotificationMessage(data NotificationData) *ServerMessage {
	return &ServerMessage{Type: MessageTypeNotification, Data: data}
}

// NewReadAckMessage creates the response to a read acknowledgment
func NewReadAckMessage(notificationID, connectionID string, success bool) *ServerMessage {
	return &ServerMessage{
		Type: MessageTypeReadAck,
		Data: ReadAckData{NotificationID: notificationID, ConnectionID: connectionID, Success: success},
	}
}

// NewErrorMessage creates an application error
func NewErrorMessage(errText, details string) *ServerMessage {
	return &ServerMessage{
		Type: MessageTypeError,
		Data: ErrorData{Error: errText, Details: details},
	}
}
