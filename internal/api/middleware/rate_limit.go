package middleware

import (
	"fmt"
	"motolens/internal/config"
	"motolens/internal/models"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-client token-bucket rate limiting with a
// separate bucket per endpoint class, so a burst of login attempts cannot
// consume the quota of the reset endpoints and vice versa.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	cleanup  time.Duration
}

// NewRateLimiter creates a new rate limiter middleware
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		cleanup:  time.Hour,
	}

	go rl.cleanupRoutine()

	return rl
}

// getLimiter returns the limiter for one (class, client) pair
func (rl *RateLimiter) getLimiter(key string, policy config.RateLimitPolicy) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(policy.Window/time.Duration(policy.Requests)), policy.Requests)
	rl.limiters[key] = limiter
	return limiter
}

// cleanupRoutine periodically drops idle limiters so the map cannot grow
// without bound
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mu.Unlock()
	}
}

// Limit returns a Gin middleware enforcing the given policy per client IP
func (rl *RateLimiter) Limit(class string, policy config.RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := class + ":" + c.ClientIP()
		limiter := rl.getLimiter(key, policy)

		now := time.Now()
		if !limiter.Allow() {
			retryAfter := int(policy.Window.Seconds())
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", policy.Requests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", now.Add(policy.Window).Unix()))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "rate limit exceeded"})
			c.Abort()
			return
		}

		remaining := int(limiter.Tokens())
		if remaining > policy.Requests {
			remaining = policy.Requests
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", policy.Requests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", now.Add(policy.Window).Unix()))

		c.Next()
	}
}
