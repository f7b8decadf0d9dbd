package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimiter is a fixed-window counter in redis, keyed per caller.
type RateLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

func NewRateLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RateLimiter {
	if keyPrefix == "" {
		keyPrefix = "ariadne-rate:"
	}
	return &RateLimiter{client: client, keyPrefix: keyPrefix, limit: limit, window: window}
}

func (r *RateLimiter) CheckAndIncrement(ctx context.Context, key string) error {
	script := redis.NewScript(`
		local current = redis.call("GET", KEYS[1])
		if current == false then
			redis.call("SET", KEYS[1], 1, "EX", ARGV[2])
			return 1
		end
		local count = tonumber(current)
		if count >= tonumber(ARGV[1]) then
			return 0
		end
		redis.call("INCR", KEYS[1])
		return 1
	`)

	result, err := script.Run(ctx, r.client, []string{r.keyPrefix + key}, r.limit, int(r.window.Seconds())).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrRateLimitExceeded
	}
	return nil
}

// ForgotRateLimit throttles reset requests per client IP. A nil limiter (no
// redis configured) disables throttling. Redis being down never blocks the
// flow; we just log and let the request through.
func ForgotRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		err := limiter.CheckAndIncrement(c.Request.Context(), c.ClientIP())
		if errors.Is(err, ErrRateLimitExceeded) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			return
		}
		if err != nil {
			log.Printf("rate limit: redis error: %v", err)
		}
		c.Next()
	}
}
