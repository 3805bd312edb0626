// Package ratelimit counts requests per key, either in process or in redis.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (Decision, error)
}

// Rule caps a bucket at Max requests per Window
type Rule struct {
	Max    int
	Window time.Duration
}
