// Package connection owns the lifecycle of the push-server connection: the
// transport handle, the connection state machine, the reconnect timer and the
// pending read-acknowledgment set. All mutations run on a single event loop
// started by Manager.Run; views read immutable State snapshots.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"notify-client/internal/models"
	"notify-client/internal/websocket"
)

const (
	// DefaultReconnectDelay is the fixed wait before retrying an abnormal close
	DefaultReconnectDelay = 3 * time.Second

	// Time allowed for the opening handshake of a single attempt
	defaultDialTimeout = 15 * time.Second

	eventBufferSize = 64
)

// Status line messages
const (
	MsgTokenRequired     = "Token is required to connect"
	MsgConnectionFailed  = "Connection failed"
	MsgClosedUnexpected  = "Connection closed unexpectedly"
	MsgCreateConnFailure = "Failed to create WebSocket connection"
)

var (
	ErrTokenRequired    = errors.New("token is required to connect")
	ErrNotConnected     = errors.New("transport is not open")
	ErrManagerStopped   = errors.New("connection manager stopped")
	ErrAlreadyRunning   = errors.New("connection manager already running")
	ErrInvalidServerURL = errors.New("invalid server url")
)

// Manager is the connection manager. Create it with New and start the event
// loop with Run before calling any action.
type Manager struct {
	serverURL      string
	dialer         websocket.Dialer
	logger         *slog.Logger
	errors         *websocket.ErrorHandler
	now            func() time.Time
	reconnectDelay time.Duration
	dialTimeout    time.Duration
	onNotification func(userID string, n models.Notification)

	events  chan event
	done    chan struct{}
	running atomic.Bool

	// Loop-owned state. Only touched from Run.
	token          string
	state          State
	conn           websocket.Conn
	gen            uint64
	dialing        bool
	dialCancel     context.CancelFunc
	pending        []string
	pendingSet     map[string]struct{}
	reconnectTimer *time.Timer
	reconnectSeq   uint64

	// Published snapshot
	mu          sync.RWMutex
	snapshot    State
	subscribers map[int]chan State
	nextSubID   int
}

// New creates a manager for serverURL. The manager never connects on its own;
// call Connect once a token is available.
func New(serverURL string, opts ...Option) *Manager {
	m := &Manager{
		serverURL:      serverURL,
		logger:         slog.Default(),
		now:            time.Now,
		reconnectDelay: DefaultReconnectDelay,
		dialTimeout:    defaultDialTimeout,
		events:         make(chan event, eventBufferSize),
		done:           make(chan struct{}),
		pendingSet:     make(map[string]struct{}),
		subscribers:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = websocket.NewGorillaDialer(m.logger)
	}
	if m.errors == nil {
		m.errors = websocket.NewErrorHandler(m.logger)
	}
	m.state.Notifications = []models.Notification{}
	m.snapshot = m.state.clone()
	return m
}

// Run processes actions and transport events until ctx is cancelled. On exit
// the connection is torn down and subscriber channels are closed.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)

	m.logger.Info("Connection manager started", "serverURL", m.serverURL)

	for {
		select {
		case ev := <-m.events:
			m.handleEvent(ev)
			m.publish()

		case <-ctx.Done():
			m.disconnect()
			m.publish()
			m.closeSubscribers()
			m.logger.Info("Connection manager stopped")
			return nil
		}
	}
}

// Done is closed once Run has returned
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Errors exposes the error statistics collected for this manager
func (m *Manager) Errors() *websocket.ErrorHandler {
	return m.errors
}

// Snapshot returns the latest committed state
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.clone()
}

// Subscribe returns a channel receiving every committed state. Slow readers
// only see the latest state. Call cancel to unsubscribe.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	ch <- m.snapshot.clone()
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// SetToken updates the credential. An empty token forces a disconnect; a
// non-empty token never connects by itself.
func (m *Manager) SetToken(token string) error {
	return m.do(func() {
		m.token = token
		if token == "" {
			m.logger.Info("Token removed, disconnecting")
			m.disconnect()
		}
	})
}

// Connect opens the connection using the current token. It is a no-op while a
// transport is open or being dialed.
func (m *Manager) Connect() error {
	var err error
	if e := m.do(func() { err = m.connect() }); e != nil {
		return e
	}
	return err
}

// Disconnect cancels any pending reconnect and closes the transport. Idempotent.
func (m *Manager) Disconnect() error {
	return m.do(m.disconnect)
}

// MarkAsRead acknowledges notificationID, queueing it while the handshake is
// outstanding. It returns ErrNotConnected without queueing when no transport
// is open.
func (m *Manager) MarkAsRead(notificationID string) error {
	var err error
	if e := m.do(func() { err = m.sendReadAck(notificationID) }); e != nil {
		return e
	}
	return err
}

// SendPing sends an application-level ping when the transport is open
func (m *Manager) SendPing() error {
	var err error
	if e := m.do(func() { err = m.sendPing() }); e != nil {
		return e
	}
	return err
}

// ClearNotifications empties the notification collection only
func (m *Manager) ClearNotifications() error {
	return m.do(func() {
		m.state.Notifications = []models.Notification{}
	})
}

// do runs fn on the event loop and waits for it to be applied
func (m *Manager) do(fn func()) error {
	done := make(chan struct{})
	select {
	case m.events <- actionEvent{fn: fn, done: done}:
	case <-m.done:
		return ErrManagerStopped
	}
	select {
	case <-done:
		return nil
	case <-m.done:
		return ErrManagerStopped
	}
}

// post delivers a transport event to the loop, dropping it once Run has exited
func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *Manager) publish() {
	snap := m.state.clone()
	snap.PendingAcks = len(m.pending)
	snap.ReconnectScheduled = m.reconnectTimer != nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap.clone()
	}
}

func (m *Manager) closeSubscribers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
}

// transition applies a typed input to the phase flags
func (m *Manager) transition(in Input) {
	from := m.state.Phase()
	to, err := nextPhase(from, in)
	if err != nil {
		m.logger.Warn("Ignoring connection input", "error", err)
		return
	}
	m.state.setPhase(to)
	if from != m.state.Phase() {
		m.logger.Debug("Connection phase changed", "from", from, "to", m.state.Phase(), "input", in)
	}
}

func (m *Manager) connect() error {
	if m.token == "" {
		m.state.Error = MsgTokenRequired
		m.errors.LogEvent(websocket.ValidationError, websocket.SeverityWarning, MsgTokenRequired, ErrTokenRequired)
		return ErrTokenRequired
	}

	if m.conn != nil || m.dialing {
		m.logger.Debug("Connect ignored, transport already open or opening")
		return nil
	}

	m.cancelReconnect()

	rawURL, err := websocket.BuildURL(m.serverURL, m.token)
	if err != nil {
		m.state.Error = MsgCreateConnFailure
		m.state.setPhase(PhaseDisconnected)
		m.errors.LogEvent(websocket.TransportOpenError, websocket.SeverityError, MsgCreateConnFailure, err)
		return errors.Join(ErrInvalidServerURL, err)
	}

	m.transition(InputConnect)
	m.state.Error = ""
	m.state.clearIdentity()

	m.gen++
	gen := m.gen
	m.dialing = true

	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	m.dialCancel = cancel

	m.logger.Info("Connecting to push server", "serverURL", m.serverURL, "attempt", gen)

	go func() {
		defer cancel()
		conn, err := m.dialer.Dial(ctx, rawURL)
		if err != nil {
			m.post(dialFailedEvent{gen: gen, err: err})
			return
		}
		m.post(openEvent{gen: gen, conn: conn})
	}()
	return nil
}

func (m *Manager) disconnect() {
	m.cancelReconnect()

	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	m.dialing = false

	// Events from the old connection are stale from here on.
	m.gen++

	if m.conn != nil {
		if err := m.conn.Close(websocket.CloseNormal, "client disconnect"); err != nil {
			m.logger.Debug("Error closing transport", "error", err)
		}
		m.conn = nil
		m.logger.Info("Disconnected from push server")
	}

	m.state.clearIdentity()
	m.transition(InputDisconnect)
	m.clearPending()
}

func (m *Manager) scheduleReconnect() {
	m.cancelReconnect()

	seq := m.reconnectSeq
	m.reconnectTimer = time.AfterFunc(m.reconnectDelay, func() {
		m.post(reconnectEvent{seq: seq})
	})
	m.logger.Info("Reconnect scheduled", "delay", m.reconnectDelay)
}

func (m *Manager) cancelReconnect() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	// Invalidates a fire that is already queued on the loop.
	m.reconnectSeq++
}

func (m *Manager) sendReadAck(notificationID string) error {
	if m.conn == nil {
		m.logger.Debug("Read acknowledgment dropped, transport not open", "notificationID", notificationID)
		return ErrNotConnected
	}

	// Gated on identity, not IsConnected: a server error message clears the
	// flag while the transport and identity stay valid.
	if m.state.ConnectionID == "" {
		m.addPending(notificationID)
		m.logger.Debug("Handshake outstanding, read acknowledgment queued", "notificationID", notificationID)
		return nil
	}

	data, err := websocket.NewReadMessage(notificationID, m.state.ConnectionID, m.now()).Encode()
	if err != nil {
		return err
	}
	if err := m.conn.Send(data); err != nil {
		m.logger.Warn("Failed to send read acknowledgment", "notificationID", notificationID, "error", err)
		return err
	}
	m.logger.Debug("Read acknowledgment sent", "notificationID", notificationID, "connectionID", m.state.ConnectionID)
	return nil
}

func (m *Manager) sendPing() error {
	if m.conn == nil {
		return ErrNotConnected
	}
	data, err := websocket.NewPingMessage(m.now()).Encode()
	if err != nil {
		return err
	}
	if err := m.conn.Send(data); err != nil {
		return err
	}
	m.logger.Debug("Sent ping message")
	return nil
}

func (m *Manager) addPending(id string) {
	if _, ok := m.pendingSet[id]; ok {
		return
	}
	m.pendingSet[id] = struct{}{}
	m.pending = append(m.pending, id)
}

func (m *Manager) flushPending() {
	if len(m.pending) == 0 {
		return
	}
	queued := m.pending
	m.clearPending()

	m.logger.Info("Processing pending read acknowledgments", "count", len(queued))
	for _, id := range queued {
		m.sendReadAck(id)
	}
}

func (m *Manager) clearPending() {
	m.pending = nil
	m.pendingSet = make(map[string]struct{})
}
