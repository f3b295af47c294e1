package middleware

import (
	"net/http"
	"sync"

	"notify-client/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiters kept before the table is reset
const maxTrackedClients = 1024

type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimitMiddleware allows perSecond requests per client IP with burst.
// A non-positive perSecond disables limiting.
func NewRateLimitMiddleware(perSecond float64, burst int) *RateLimitMiddleware {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitMiddleware{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rm *RateLimitMiddleware) limiterFor(key string) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if l, ok := rm.limiters[key]; ok {
		return l
	}
	if len(rm.limiters) >= maxTrackedClients {
		rm.limiters = make(map[string]*rate.Limiter)
	}
	l := rate.NewLimiter(rm.limit, rm.burst)
	rm.limiters[key] = l
	return l
}

// RateLimitIP rejects requests over the per-IP budget with 429
func (rm *RateLimitMiddleware) RateLimitIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm.limit <= 0 {
			c.Next()
			return
		}

		if !rm.limiterFor(c.ClientIP()).Allow() {
			response.ErrorResponse(c, http.StatusTooManyRequests, response.ErrCodeRateLimited, "")
			return
		}

		c.Next()
	}
}
