package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound frames buffered before Send reports ErrSendBufferFull
	sendBufferSize = 256

	// Time allowed for the opening handshake
	handshakeTimeout = 10 * time.Second
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Handler receives transport events. Calls come from the connection's read
// goroutine, one at a time; OnClose is always the last call.
type Handler interface {
	OnMessage(data []byte)
	OnError(err error)
	OnClose(code int, reason string)
}

// Conn is an open connection to the push server. No events are delivered
// until Start is called.
type Conn interface {
	Start(h Handler)
	Send(data []byte) error
	Close(code int, reason string) error
}

// Dialer opens connections to the push server.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// BuildURL attaches token to endpoint as the URL-encoded "token" query parameter.
func BuildURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GorillaDialer dials with gorilla/websocket and runs read/write pumps per connection.
type GorillaDialer struct {
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// NewGorillaDialer creates a dialer with the default handshake timeout
func NewGorillaDialer(logger *slog.Logger) *GorillaDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GorillaDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		header: http.Header{},
		logger: logger,
	}
}

// WithHeader sets a header sent with every opening handshake
func (d *GorillaDialer) WithHeader(key, value string) *GorillaDialer {
	d.header.Set(key, value)
	return d
}

// Dial completes the opening handshake. Pumps start with Conn.Start.
func (d *GorillaDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return newClient(conn, d.logger), nil
}

// Client is one live gorilla connection
type Client struct {
	conn    *websocket.Conn
	handler Handler
	send    chan []byte
	logger  *slog.Logger

	// Connection state management
	ctx     context.Context
	cancel  context.CancelFunc
	closed  int32 // atomic flag set by a local Close
	started int32

	localCode   int
	localReason string
	mu          sync.Mutex

	// Goroutine coordination
	wg sync.WaitGroup
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins delivering events to h. Only the first call has an effect.
func (c *Client) Start(h Handler) {
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return
	}
	c.handler = h
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// isClosed returns true if the client was closed locally
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Send queues a text frame for the write pump
func (c *Client) Send(data []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}

	select {
	case <-c.ctx.Done():
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnClosed
	default:
		c.logger.Warn("Send buffer full, dropping frame", "size", len(data))
		return ErrSendBufferFull
	}
}

// Close sends a close frame with code and tears the connection down. Only the
// first call has an effect.
func (c *Client) Close(code int, reason string) error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	c.mu.Lock()
	c.localCode = code
	c.localReason = reason
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("Error writing close frame", "error", err)
	}
	c.cancel()
	return c.conn.Close()
}

// Wait blocks until both pumps have exited
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) readPump() {
	defer func() {
		c.wg.Done()
		c.cancel()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("Error closing connection", "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.reportClose(err)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handler.OnMessage(data)
	}
}

func (c *Client) reportClose(err error) {
	if c.isClosed() {
		c.mu.Lock()
		code, reason := c.localCode, c.localReason
		c.mu.Unlock()
		c.handler.OnClose(code, reason)
		return
	}

	// gorilla reports a dropped TCP stream as a 1006 CloseError
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != CloseAbnormal {
		c.logger.Debug("WebSocket connection closed by peer", "code", ce.Code, "reason", ce.Text)
		c.handler.OnClose(ce.Code, ce.Text)
		return
	}

	c.logger.Debug("WebSocket read failed", "error", err)
	c.handler.OnError(err)
	c.handler.OnClose(CloseAbnormal, "")
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Error writing message", "error", err)
				// Unblocks readPump, which reports the failure.
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("Error sending ping", "error", err)
				c.conn.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
