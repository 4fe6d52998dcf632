package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitPrefix = "ratelimit:"

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Allow counts one hit for subject on scope in the current fixed window.
// Redis errors fail open.
func (c *Cache) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) RateLimitResult {
	now := c.now()
	key, resetAt := windowKey(scope, subject, now, window)

	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("Rate limit check failed, allowing request")
		return RateLimitResult{Allowed: true, Remaining: int64(limit)}
	}

	return evaluate(incr.Val(), limit, resetAt.Sub(now))
}

func evaluate(count int64, limit int, untilReset time.Duration) RateLimitResult {
	if count > int64(limit) {
		return RateLimitResult{Allowed: false, RetryAfter: untilReset}
	}
	return RateLimitResult{Allowed: true, Remaining: int64(limit) - count}
}

// windowKey returns the counter key for the window containing now and the
// time that window ends.
func windowKey(scope, subject string, now time.Time, window time.Duration) (string, time.Time) {
	start := now.Truncate(window)
	return fmt.Sprintf("%s%s:%s:%d", rateLimitPrefix, scope, hashIP(subject), start.Unix()), start.Add(window)
}

// hashIP creates a truncated SHA256 hash so raw addresses are not stored.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
