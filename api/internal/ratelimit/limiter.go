package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result is the outcome of a single Allow check.
type Result struct {
	Allowed    bool
	Count      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter is a fixed one-minute window counter per key, backed by Redis.
// A nil Limiter, a nil client or a non-positive limit allows everything.
type Limiter struct {
	client *redis.Client
	rpm    int64
	window time.Duration
	prefix string
	log    *slog.Logger

	now func() time.Time
}

func NewLimiter(client *redis.Client, rpm int, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		client: client,
		rpm:    int64(rpm),
		window: time.Minute,
		prefix: "voxveritas:rpm",
		log:    logger,
		now:    time.Now,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.rpm > 0
}

// Allow counts one request for key. Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if !l.Enabled() {
		return Result{Allowed: true}
	}

	now := l.now().UTC()
	bucket := now.Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Warn("ratelimit: redis unavailable, allowing", "key", key, "error", err)
		return Result{Allowed: true}
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}

	res := Result{Allowed: cnt <= l.rpm, Count: cnt, Remaining: l.rpm - cnt}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		windowEnd := time.Unix((bucket+1)*int64(l.window.Seconds()), 0)
		res.RetryAfter = windowEnd.Sub(now)
	}
	return res
}
