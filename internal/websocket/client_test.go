package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeEvent struct {
	code   int
	reason string
}

// recordingHandler collects transport events for assertions
type recordingHandler struct {
	mu       sync.Mutex
	messages [][]byte
	errs     []error
	closed   chan closeEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan closeEvent, 1)}
}

func (h *recordingHandler) OnMessage(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, data)
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) OnClose(code int, reason string) {
	h.closed <- closeEvent{code: code, reason: reason}
}

func (h *recordingHandler) getMessages() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([][]byte, len(h.messages))
	copy(result, h.messages)
	return result
}

func (h *recordingHandler) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func (h *recordingHandler) waitClose(t *testing.T) closeEvent {
	t.Helper()
	select {
	case ev := <-h.closed:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for close")
		return closeEvent{}
	}
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer runs serve for every upgraded connection
func newTestServer(t *testing.T, serve func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBuildURL(t *testing.T) {
	raw, err := BuildURL("wss://push.example.com/ws?v=2", "a b&c")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "a b&c", u.Query().Get("token"))
	assert.Equal(t, "2", u.Query().Get("v"))
	assert.Contains(t, raw, "token=a+b%26c")

	_, err = BuildURL("://bad", "t")
	assert.Error(t, err)
}

func TestGorillaDialerRoundTrip(t *testing.T) {
	received := make(chan string, 1)
	srv := newTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("token"))
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome"}`)))
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- string(data)
		}
		conn.ReadMessage() // wait for the client close frame
	})

	rawURL, err := BuildURL(wsURL(srv), "abc")
	require.NoError(t, err)

	h := newRecordingHandler()
	conn, err := NewGorillaDialer(testLogger()).Dial(context.Background(), rawURL)
	require.NoError(t, err)
	conn.Start(h)
	conn.Start(h) // second start is ignored

	require.Eventually(t, func() bool { return len(h.getMessages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"type":"welcome"}`, string(h.getMessages()[0]))

	require.NoError(t, conn.Send([]byte(`{"type":"ping","data":{},"timestamp":1}`)))
	select {
	case got := <-received:
		assert.JSONEq(t, `{"type":"ping","data":{},"timestamp":1}`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive frame")
	}

	require.NoError(t, conn.Close(CloseNormal, ""))
	ev := h.waitClose(t)
	assert.Equal(t, CloseNormal, ev.code)

	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnClosed)
	assert.NoError(t, conn.Close(CloseNormal, ""), "second close is a no-op")
}

func TestGorillaDialerPeerCloseCode(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		msg := websocket.FormatCloseMessage(ClosePolicyViolation, "invalid token")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.ReadMessage()
	})

	h := newRecordingHandler()
	conn, err := NewGorillaDialer(testLogger()).Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	conn.Start(h)

	ev := h.waitClose(t)
	assert.Equal(t, ClosePolicyViolation, ev.code)
	assert.Equal(t, "invalid token", ev.reason)
	assert.Zero(t, h.errorCount(), "a close frame is not a transport error")
}

func TestGorillaDialerAbruptDisconnect(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		// Drop the TCP connection without a close frame.
		conn.UnderlyingConn().Close()
	})

	h := newRecordingHandler()
	conn, err := NewGorillaDialer(testLogger()).Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	conn.Start(h)

	ev := h.waitClose(t)
	assert.Equal(t, CloseAbnormal, ev.code)
	assert.Equal(t, 1, h.errorCount())
}

func TestGorillaDialerHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewGorillaDialer(testLogger()).Dial(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
