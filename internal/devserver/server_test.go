package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notify-client/internal/api/middleware"
	"notify-client/internal/auth"
	"notify-client/internal/config"
	"notify-client/internal/websocket"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, adminKey string) (*Server, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv, err := New(config.DevServerConfig{JWTSecret: testSecret, AdminKey: adminKey}, hub, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.GetEngine())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialAs(t *testing.T, ts *httptest.Server, userID string) *gorilla.Conn {
	t.Helper()
	token, err := auth.Issue(testSecret, userID, time.Hour)
	require.NoError(t, err)
	raw, err := websocket.BuildURL(wsURL(ts), token)
	require.NoError(t, err)

	conn, _, err := gorilla.DefaultDialer.Dial(raw, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) *websocket.InboundMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := websocket.DecodeInbound(data)
	require.NoError(t, err)
	return msg
}

// dialAndWelcome connects userID and consumes the welcome frame
func dialAndWelcome(t *testing.T, ts *httptest.Server, userID string) (*gorilla.Conn, string) {
	t.Helper()
	conn := dialAs(t, ts, userID)
	msg := readMessage(t, conn)
	require.Equal(t, websocket.MessageTypeWelcome, msg.Type)
	welcome, err := msg.Welcome()
	require.NoError(t, err)
	return conn, welcome.ConnectionID
}

func TestWelcomeOnValidToken(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dialAs(t, ts, "u1")

	msg := readMessage(t, conn)
	require.Equal(t, websocket.MessageTypeWelcome, msg.Type)
	welcome, err := msg.Welcome()
	require.NoError(t, err)
	assert.Equal(t, "u1", welcome.UserID)
	assert.Equal(t, welcomeText, welcome.Message)
	_, err = uuid.Parse(welcome.ConnectionID)
	assert.NoError(t, err)
}

func TestInvalidTokenClosesWithPolicyViolation(t *testing.T) {
	_, ts := newTestServer(t, "")

	for _, token := range []string{"", "garbage"} {
		raw, err := websocket.BuildURL(wsURL(ts), token)
		require.NoError(t, err)
		conn, _, err := gorilla.DefaultDialer.Dial(raw, nil)
		require.NoError(t, err)

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		var ce *gorilla.CloseError
		require.True(t, errors.As(err, &ce), "token %q: %v", token, err)
		assert.Equal(t, gorilla.ClosePolicyViolation, ce.Code)
		conn.Close()
	}
}

func TestPublishToUserAndBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, "")

	c1, _ := dialAndWelcome(t, ts, "u1")
	c2, _ := dialAndWelcome(t, ts, "u2")

	res, err := srv.Publish(PublishRequest{UserID: "u1", Title: "Hi", Body: "Only u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)

	msg := readMessage(t, c1)
	require.Equal(t, websocket.MessageTypeNotification, msg.Type)
	n, err := msg.Notification()
	require.NoError(t, err)
	assert.Equal(t, res.ID, n.ID)
	assert.Equal(t, "Only u1", n.Body)
	assert.Equal(t, "info", n.Type)

	res, err = srv.Publish(PublishRequest{Title: "All", Message: "Everyone", Type: "warning"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)

	// u2's first frame after welcome is the broadcast, not u1's notification.
	msg = readMessage(t, c2)
	n, err = msg.Notification()
	require.NoError(t, err)
	assert.Equal(t, "All", n.Title)
	assert.Equal(t, "warning", n.Type)
}

func TestPublishToUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, "")
	res, err := srv.Publish(PublishRequest{UserID: "ghost", ID: "fixed", Title: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.ID)
	assert.Zero(t, res.Delivered)

	_, err = srv.Publish(PublishRequest{Title: "  "})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestReadAck(t *testing.T) {
	srv, ts := newTestServer(t, "")
	conn, connID := dialAndWelcome(t, ts, "u1")

	res, err := srv.Publish(PublishRequest{UserID: "u1", Title: "Hi"})
	require.NoError(t, err)
	readMessage(t, conn)

	tests := []struct {
		id   string
		want bool
	}{
		{res.ID, true},
		{"never-pushed", false},
	}
	for _, tt := range tests {
		frame, err := websocket.NewReadMessage(tt.id, connID, time.Now()).Encode()
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, frame))

		msg := readMessage(t, conn)
		require.Equal(t, websocket.MessageTypeReadAck, msg.Type)
		ack, err := msg.ReadAck()
		require.NoError(t, err)
		assert.Equal(t, tt.id, ack.NotificationID)
		assert.Equal(t, connID, ack.ConnectionID)
		assert.Equal(t, tt.want, ack.Success)
	}
}

func TestPingIgnoredUnknownRejected(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn, _ := dialAndWelcome(t, ts, "u1")

	ping, err := websocket.NewPingMessage(time.Now()).Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, ping))
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"subscribe","data":{}}`)))

	// The ping produced nothing, so the next frame answers the unknown type.
	msg := readMessage(t, conn)
	require.Equal(t, websocket.MessageTypeError, msg.Type)
	data, err := msg.ServerError()
	require.NoError(t, err)
	assert.Equal(t, "Unknown message type", data.Error)
	assert.Equal(t, "subscribe", data.Details)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{not json`)))
	msg = readMessage(t, conn)
	assert.Equal(t, websocket.MessageTypeError, msg.Type)
}

func TestHandlePublish(t *testing.T) {
	_, ts := newTestServer(t, "admin")

	post := func(body, key string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/notifications", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(middleware.AdminKeyHeader, key)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, post(`{"title":"x"}`, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(`{"title":"x"}`, "wrong").StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"body":"no title"}`, "admin").StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`nope`, "admin").StatusCode)

	resp := post(`{"userId":"u1","title":"x"}`, "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data PublishResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Data.ID)
}

func TestHandleStats(t *testing.T) {
	srv, ts := newTestServer(t, "")
	dialAndWelcome(t, ts, "u1")
	dialAndWelcome(t, ts, "u1")
	dialAndWelcome(t, ts, "u2")
	_, err := srv.Publish(PublishRequest{Title: "x"})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Data Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Data.Sessions)
	assert.Equal(t, 2, body.Data.Users)
	assert.Equal(t, int64(1), body.Data.Pushed)
}

func TestSessionUnregisteredOnClientClose(t *testing.T) {
	srv, ts := newTestServer(t, "")
	conn, _ := dialAndWelcome(t, ts, "u1")

	conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().Stats().Sessions == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesSessionsNormally(t *testing.T) {
	srv, ts := newTestServer(t, "")
	conn, _ := dialAndWelcome(t, ts, "u1")

	srv.Hub().Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *gorilla.CloseError
	require.True(t, errors.As(err, &ce), "%v", err)
	assert.Equal(t, gorilla.CloseNormalClosure, ce.Code)
}

type fakeReader struct {
	msgs chan kafkago.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaFeed(t *testing.T) {
	srv, ts := newTestServer(t, "")
	conn, _ := dialAndWelcome(t, ts, "u1")

	reader := &fakeReader{msgs: make(chan kafkago.Message, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunKafkaFeed(ctx, reader) }()

	record := kafkago.Message{
		Value:   []byte(`{"id":"k1","title":"From Kafka","message":"replayed","timestamp":"2024-05-01T12:00:00.000Z","type":"success"}`),
		Headers: []kafkago.Header{{Key: userIDHeader, Value: []byte("u1")}},
	}
	reader.msgs <- record

	msg := readMessage(t, conn)
	n, err := msg.Notification()
	require.NoError(t, err)
	assert.Equal(t, "k1", n.ID)
	assert.Equal(t, "replayed", n.Message)
	assert.Equal(t, "success", n.Type)

	// A replay of a known id is skipped.
	reader.msgs <- record
	reader.msgs <- kafkago.Message{Value: []byte(`not json`)}
	reader.msgs <- kafkago.Message{Value: []byte(`{"id":"k2","title":"Second","userId":"u1"}`)}

	msg = readMessage(t, conn)
	n, err = msg.Notification()
	require.NoError(t, err)
	assert.Equal(t, "k2", n.ID)
	assert.Equal(t, int64(2), srv.Hub().Stats().Pushed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("kafka feed did not stop")
	}
}
