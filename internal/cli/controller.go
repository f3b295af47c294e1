package cli

import (
	"log/slog"
	"sync/atomic"
	"time"

	"notify-client/internal/auth"
	"notify-client/internal/connection"
)

// tokenController owns the client's current token. The control API and the
// token file watcher both set it here; the screen header reads it back.
type tokenController struct {
	*connection.Manager
	token  atomic.Value
	logger *slog.Logger
}

func newTokenController(manager *connection.Manager, token string, logger *slog.Logger) *tokenController {
	c := &tokenController{Manager: manager, logger: logger}
	c.token.Store(token)
	return c
}

// Token returns the token most recently applied
func (c *tokenController) Token() string {
	return c.token.Load().(string)
}

func (c *tokenController) SetToken(token string) error {
	c.token.Store(token)
	logTokenClaims(c.logger, token)
	return c.Manager.SetToken(token)
}

func logTokenClaims(logger *slog.Logger, token string) {
	if token == "" {
		logger.Info("Token cleared")
		return
	}
	claims, err := auth.Inspect(token)
	if err != nil {
		logger.Info("Token set", "format", "opaque")
		return
	}
	logger.Info("Token set", "userID", claims.UserID, "expiresAt", claims.ExpiresAt, "expired", claims.Expired(time.Now()))
}
