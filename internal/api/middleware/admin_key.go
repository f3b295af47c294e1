package middleware

import (
	"net/http"

	"notify-client/internal/auth"
	"notify-client/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the shared key on dev server publish requests
const AdminKeyHeader = "X-Admin-Key"

type AdminKeyMiddleware struct {
	hash []byte
}

// NewAdminKeyMiddleware keeps only the bcrypt hash of key. An empty key
// disables the check.
func NewAdminKeyMiddleware(key string) (*AdminKeyMiddleware, error) {
	if key == "" {
		return &AdminKeyMiddleware{}, nil
	}
	hash, err := auth.HashKey(key)
	if err != nil {
		return nil, err
	}
	return &AdminKeyMiddleware{hash: hash}, nil
}

func (am *AdminKeyMiddleware) Enabled() bool {
	return len(am.hash) > 0
}

func (am *AdminKeyMiddleware) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			response.ErrorResponse(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, AdminKeyHeader+" header is required")
			return
		}
		if !auth.KeyMatches(am.hash, key) {
			response.ErrorResponse(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "invalid admin key")
			return
		}
		c.Next()
	}
}
