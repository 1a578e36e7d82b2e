package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed window request counter kept in Redis.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient redis.Cmdable, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: redisClient, limit: limit, window: window}
}

// Allow counts one request for identifier and reports whether it is within
// the limit. Store errors let the request through.
func (r *RateLimiter) Allow(ctx context.Context, identifier string) bool {
	key := fmt.Sprintf("ratelimit:%s", identifier)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	return count <= r.limit
}

// IsSuspiciousUserAgent flags crawlers that have no business calling the
// trigger endpoint.
func IsSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
