// Package ratelimit bounds failed PIN verifications per email with a
// fixed-window counter in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
}

// PinLimiter counts failed PIN attempts per email.
type PinLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a PinLimiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *PinLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "shiftdesk"
	}
	return &PinLimiter{redis: client, config: cfg}
}

// Check returns common.ErrRateLimited once the email has used up its budget
// for the current window. Missing keys mean no failures so far.
func (l *PinLimiter) Check(ctx context.Context, email string) error {
	count, err := l.redis.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return common.ErrRateLimited
	}
	return nil
}

// Fail records one failed attempt. The window starts at the first failure.
func (l *PinLimiter) Fail(ctx context.Context, email string) error {
	key := l.key(email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter after a successful verification.
func (l *PinLimiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *PinLimiter) key(email string) string {
	return l.config.KeyPrefix + ":pin_attempts:" + strings.ToLower(strings.TrimSpace(email))
}
