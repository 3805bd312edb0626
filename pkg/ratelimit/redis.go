package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every instance that points
// at the same redis.
type RedisLimiter struct {
	client goredis.UniversalClient
	prefix string
	rules  map[string]Rule
	now    func() time.Time
}

func NewRedisLimiter(client goredis.UniversalClient, prefix string, rules map[string]Rule) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, rules: rules, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, bucket, key string) (Decision, error) {
	rule, ok := l.rules[bucket]
	if !ok || rule.Max <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	windowKey, resetAt := WindowKey(l.prefix, bucket, key, rule.Window, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	return decide(rule, incr.Val(), now, resetAt), nil
}

// WindowKey names the counter for the window containing now and reports
// when that window ends.
func WindowKey(prefix, bucket, key string, window time.Duration, now time.Time) (string, time.Time) {
	start := now.Truncate(window)
	return fmt.Sprintf("%s%s:%s:%d", prefix, bucket, key, start.Unix()), start.Add(window)
}

func decide(rule Rule, count int64, now, resetAt time.Time) Decision {
	d := Decision{Limit: rule.Max, ResetAt: resetAt}
	if count > int64(rule.Max) {
		d.RetryAfter = resetAt.Sub(now)
		return d
	}
	d.Allowed = true
	d.Remaining = rule.Max - int(count)
	return d
}
