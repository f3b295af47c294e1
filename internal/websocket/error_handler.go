package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes consumed by the client
const (
	CloseNormal          = websocket.CloseNormalClosure   // 1000
	ClosePolicyViolation = websocket.ClosePolicyViolation // 1008, auth rejection
	CloseAbnormal        = websocket.CloseAbnormalClosure // 1006, no close frame
)

// CloseKind classifies a close code for the reconnect policy
type CloseKind int

const (
	CloseKindNormal CloseKind = iota
	CloseKindAuthRejected
	CloseKindAbnormal
)

func (k CloseKind) String() string {
	switch k {
	case CloseKindNormal:
		return "normal"
	case CloseKindAuthRejected:
		return "auth_rejected"
	default:
		return "abnormal"
	}
}

// ClassifyClose maps a close code onto the reconnect policy
func ClassifyClose(code int) CloseKind {
	switch code {
	case CloseNormal:
		return CloseKindNormal
	case ClosePolicyViolation:
		return CloseKindAuthRejected
	default:
		return CloseKindAbnormal
	}
}

// ErrorType represents different categories of errors that can occur
type ErrorType string

const (
	ValidationError    ErrorType = "validation"     // missing token
	TransportOpenError ErrorType = "transport_open" // dial or socket failure
	AbnormalCloseError ErrorType = "abnormal_close" // close without 1000/1008
	AuthRejectedError  ErrorType = "auth_rejected"  // close 1008
	ServerError        ErrorType = "server"         // error-kind message
	MalformedError     ErrorType = "malformed"      // unparseable frame
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo    ErrorSeverity = "info"
	SeverityWarning ErrorSeverity = "warning"
	SeverityError   ErrorSeverity = "error"
)

// ErrorEvent represents a single error occurrence
type ErrorEvent struct {
	Type         ErrorType     `json:"type"`
	Severity     ErrorSeverity `json:"severity"`
	ConnectionID string        `json:"connectionId,omitempty"`
	Message      string        `json:"message"`
	Error        error         `json:"-"`
	Timestamp    time.Time     `json:"timestamp"`
	Recoverable  bool          `json:"recoverable"`
}

// ErrorHandler records connection errors by type and keeps a short history
type ErrorHandler struct {
	logger *slog.Logger

	errorCounts     map[ErrorType]int
	errorCountsLock sync.RWMutex

	// Error history (circular buffer)
	errorHistory     []ErrorEvent
	errorHistorySize int
	errorHistoryPos  int
	errorHistoryLen  int
	errorHistoryLock sync.RWMutex

	// Callback for monitoring integration
	monitorCallback func(ErrorEvent)
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return NewErrorHandlerWithConfig(logger, 50, nil)
}

// NewErrorHandlerWithConfig creates a new error handler with custom configuration
func NewErrorHandlerWithConfig(logger *slog.Logger, historySize int, callback func(ErrorEvent)) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if historySize <= 0 {
		historySize = 1
	}
	return &ErrorHandler{
		logger:           logger,
		errorCounts:      make(map[ErrorType]int),
		errorHistory:     make([]ErrorEvent, historySize),
		errorHistorySize: historySize,
		monitorCallback:  callback,
	}
}

// LogEvent logs an error event with custom message and severity
func (h *ErrorHandler) LogEvent(eventType ErrorType, severity ErrorSeverity, message string, err error) {
	h.Record(ErrorEvent{
		Type:        eventType,
		Severity:    severity,
		Message:     message,
		Error:       err,
		Timestamp:   time.Now(),
		Recoverable: eventType != AuthRejectedError,
	})
}

// Record stores and logs a fully populated event
func (h *ErrorHandler) Record(event ErrorEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.errorCountsLock.Lock()
	h.errorCounts[event.Type]++
	h.errorCountsLock.Unlock()

	h.errorHistoryLock.Lock()
	h.errorHistory[h.errorHistoryPos] = event
	h.errorHistoryPos = (h.errorHistoryPos + 1) % h.errorHistorySize
	if h.errorHistoryLen < h.errorHistorySize {
		h.errorHistoryLen++
	}
	h.errorHistoryLock.Unlock()

	attrs := []any{"type", event.Type, "message", event.Message}
	if event.ConnectionID != "" {
		attrs = append(attrs, "connectionID", event.ConnectionID)
	}
	if event.Error != nil {
		attrs = append(attrs, "error", event.Error)
	}

	switch event.Severity {
	case SeverityError:
		h.logger.Error("Connection error", attrs...)
	case SeverityWarning:
		h.logger.Warn("Connection error", attrs...)
	default:
		h.logger.Info("Connection error", attrs...)
	}

	if h.monitorCallback != nil {
		h.monitorCallback(event)
	}
}

// GetErrorStats returns statistics about errors that have occurred
func (h *ErrorHandler) GetErrorStats() map[ErrorType]int {
	h.errorCountsLock.RLock()
	defer h.errorCountsLock.RUnlock()

	stats := make(map[ErrorType]int, len(h.errorCounts))
	for k, v := range h.errorCounts {
		stats[k] = v
	}
	return stats
}

// GetRecentErrors returns the recorded events, oldest first
func (h *ErrorHandler) GetRecentErrors() []ErrorEvent {
	h.errorHistoryLock.RLock()
	defer h.errorHistoryLock.RUnlock()

	events := make([]ErrorEvent, 0, h.errorHistoryLen)
	start := (h.errorHistoryPos - h.errorHistoryLen + h.errorHistorySize) % h.errorHistorySize
	for i := 0; i < h.errorHistoryLen; i++ {
		events = append(events, h.errorHistory[(start+i)%h.errorHistorySize])
	}
	return events
}

// ResetErrorStats resets the error statistics counters
func (h *ErrorHandler) ResetErrorStats() {
	h.errorCountsLock.Lock()
	h.errorCounts = make(map[ErrorType]int)
	h.errorCountsLock.Unlock()

	h.errorHistoryLock.Lock()
	h.errorHistoryPos = 0
	h.errorHistoryLen = 0
	h.errorHistoryLock.Unlock()
}
