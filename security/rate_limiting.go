package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"match-ticketing/internal/identity"
)

// RateLimiter throttles queue traffic per client using Redis counters.
// Queue join and check-turn endpoints are hit on a fixed poll interval
// by every waiting browser, so the limit is per identity (falling back
// to IP) per minute.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		perMinute: perMinute,
	}
}

// Middleware limits request frequency and rejects obvious bot traffic.
func (r *RateLimiter) Middleware() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userAgent := e.Request.Header.Get("User-Agent")
		if r.isSuspiciousUserAgent(userAgent) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}

		key := r.clientKey(e)
		ctx := e.Request.Context()

		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, time.Minute)
			}
			if count > int64(r.perMinute) {
				return e.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests. Please try again later.",
				})
			}
		}
		// Redis being down never blocks legitimate traffic.

		return e.Next()
	}
}

func (r *RateLimiter) clientKey(e *core.RequestEvent) string {
	if id, err := identity.FromEvent(e); err == nil {
		return fmt.Sprintf("ratelimit:user:%s", id)
	}
	return fmt.Sprintf("ratelimit:ip:%s", e.RealIP())
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
