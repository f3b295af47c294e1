package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"notify-client/internal/auth"
	"notify-client/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags(t *testing.T) {
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--server", "wss://push.example.com/ws", "--api-addr", ":9999", "--no-connect"}))

	cfg := &config.Config{Client: config.ClientConfig{
		ServerURL:      "ws://localhost:8081/ws",
		Token:          "from-env",
		ReconnectDelay: 3 * time.Second,
		AutoConnect:    true,
	}}
	opts := &RootOptions{ServerURL: "wss://push.example.com/ws", APIAddr: ":9999", NoConnect: true}
	require.NoError(t, applyFlags(cmd, opts, cfg))

	assert.Equal(t, "wss://push.example.com/ws", cfg.Client.ServerURL)
	assert.Equal(t, ":9999", cfg.API.Addr)
	assert.Equal(t, "from-env", cfg.Client.Token, "unset flag keeps the environment value")
	assert.False(t, cfg.Client.AutoConnect)
}

func TestApplyFlagsRejectsHTTPURL(t *testing.T) {
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--server", "http://localhost/ws"}))

	cfg := &config.Config{Client: config.ClientConfig{ReconnectDelay: 3 * time.Second}}
	err := applyFlags(cmd, &RootOptions{ServerURL: "http://localhost/ws"}, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidServerURL)
}

func TestBuildSinksWithoutBackends(t *testing.T) {
	sinks := buildSinks(context.Background(), &config.Config{}, nil)
	require.Len(t, sinks, 1)
	assert.Equal(t, "log", sinks[0].Name())
}

func TestTokenCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--user", "alice", "--secret", "s3cret", "--ttl", "1h"})
	require.NoError(t, cmd.Execute())

	claims, err := auth.Verify("s3cret", string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}

func TestTokenCommandRequiresUser(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})
	assert.Error(t, cmd.Execute())
}
