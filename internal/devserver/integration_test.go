package devserver

import (
	"context"
	"testing"
	"time"

	"notify-client/internal/auth"
	"notify-client/internal/connection"
	"notify-client/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startClient(t *testing.T, serverURL, token string) *connection.Manager {
	t.Helper()
	m := connection.New(serverURL,
		connection.WithToken(token),
		connection.WithReconnectDelay(100*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	return m
}

func eventually(t *testing.T, m *connection.Manager, cond func(connection.State) bool, msg string) connection.State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(m.Snapshot()) }, 3*time.Second, 10*time.Millisecond, msg)
	return m.Snapshot()
}

func TestClientAgainstDevServer(t *testing.T) {
	srv, ts := newTestServer(t, "")
	token, err := auth.Issue(testSecret, "alice", time.Hour)
	require.NoError(t, err)

	m := startClient(t, wsURL(ts), token)
	require.NoError(t, m.Connect())

	s := eventually(t, m, func(s connection.State) bool { return s.IsConnected }, "welcome processed")
	assert.Equal(t, "alice", s.UserID)
	assert.NotEmpty(t, s.ConnectionID)
	assert.Empty(t, s.Error)

	first, err := srv.Publish(PublishRequest{UserID: "alice", Title: "First", Body: "one"})
	require.NoError(t, err)
	second, err := srv.Publish(PublishRequest{UserID: "alice", Title: "Second", Message: "two", Type: "error"})
	require.NoError(t, err)

	s = eventually(t, m, func(s connection.State) bool { return len(s.Notifications) == 2 }, "two notifications")
	assert.Equal(t, second.ID, s.Notifications[0].ID)
	assert.Equal(t, models.CategoryError, s.Notifications[0].Category)
	assert.Equal(t, first.ID, s.Notifications[1].ID)
	assert.Equal(t, "one", s.Notifications[1].Message)

	require.NoError(t, m.MarkAsRead(first.ID))
	require.NoError(t, m.SendPing())

	require.NoError(t, m.Disconnect())
	s = eventually(t, m, func(s connection.State) bool { return !s.IsConnected && !s.IsConnecting }, "disconnected")
	assert.Empty(t, s.Error)
	assert.False(t, s.ReconnectScheduled)
	assert.Len(t, s.Notifications, 2)
	require.Eventually(t, func() bool { return srv.Hub().Stats().Sessions == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestClientRejectedTokenDoesNotReconnect(t *testing.T) {
	srv, ts := newTestServer(t, "")
	bad, err := auth.Issue("other-secret", "mallory", time.Hour)
	require.NoError(t, err)

	m := startClient(t, wsURL(ts), bad)
	require.NoError(t, m.Connect())

	s := eventually(t, m, func(s connection.State) bool { return !s.IsConnecting && !s.IsConnected }, "closed with 1008")
	assert.Empty(t, s.Error)
	assert.False(t, s.ReconnectScheduled)

	time.Sleep(300 * time.Millisecond)
	assert.False(t, m.Snapshot().IsConnecting)
	assert.Zero(t, srv.Hub().Stats().Sessions)
}

func TestClientReconnectsAfterServerShutdown(t *testing.T) {
	srv, ts := newTestServer(t, "")
	token, err := auth.Issue(testSecret, "bob", time.Hour)
	require.NoError(t, err)

	m := startClient(t, wsURL(ts), token)
	require.NoError(t, m.Connect())
	eventually(t, m, func(s connection.State) bool { return s.IsConnected }, "connected")

	// Dropping the TCP stream without a close frame is an abnormal close.
	hub := srv.Hub()
	hub.mu.RLock()
	for session := range hub.sessions {
		session.conn.Close()
	}
	hub.mu.RUnlock()

	s := eventually(t, m, func(s connection.State) bool { return s.Error == connection.MsgClosedUnexpected }, "abnormal close")
	assert.False(t, s.IsConnected)

	eventually(t, m, func(s connection.State) bool { return s.IsConnected && s.UserID == "bob" }, "reconnected")
	require.Eventually(t, func() bool { return hub.Stats().Sessions == 1 }, 3*time.Second, 10*time.Millisecond)
}
