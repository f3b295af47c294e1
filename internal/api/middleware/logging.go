package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LogApi writes one structured access log line per request
func LogApi(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"clientIP", c.ClientIP(),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"userAgent", c.Request.UserAgent(),
			"latency", time.Since(start),
			"proto", c.Request.Proto,
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("API request", attrs...)
		case status >= 400:
			logger.Warn("API request", attrs...)
		default:
			logger.Info("API request", attrs...)
		}
	}
}
