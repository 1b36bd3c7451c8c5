package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/clock"
)

// Failure modes applied when the bucket store cannot be reached.
const (
	FailOpen   = "fail-open"
	FailClosed = "fail-closed"
)

// Limit is a per-caller allowance of Requests per Window. Burst caps the
// bucket size and defaults to Requests.
type Limit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (l Limit) capacity() int {
	if l.Burst > 0 {
		return l.Burst
	}
	return l.Requests
}

func (l Limit) refillRate() float64 {
	return float64(l.Requests) / l.Window.Seconds()
}

// Result describes a single limiter decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per caller key in a cache.Store. When the
// store implements cache.Updater each decision is an atomic
// read-modify-write, so several gateway instances sharing a Redis,
// DynamoDB or SQLite store enforce a common budget. Other stores fall back
// to a get and a set serialized only within this process.
type Limiter struct {
	store       cache.Store
	limit       Limit
	failureMode string
	clock       clock.Clock

	mu sync.Mutex
}

// NewLimiter creates a limiter over store.
func NewLimiter(store cache.Store, limit Limit, failureMode string, clk clock.Clock) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: a bucket store is required")
	}
	if limit.Requests <= 0 || limit.Window <= 0 {
		return nil, fmt.Errorf("ratelimit: invalid limit %d per %s", limit.Requests, limit.Window)
	}
	switch failureMode {
	case "":
		failureMode = FailOpen
	case FailOpen, FailClosed:
	default:
		return nil, fmt.Errorf("ratelimit: unsupported failure mode: %s", failureMode)
	}

	return &Limiter{
		store:       store,
		limit:       limit,
		failureMode: failureMode,
		clock:       clock.OrSystem(clk),
	}, nil
}

// Allow spends one token from key's bucket. A store error is returned
// together with the result the failure mode dictates.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if u, ok := l.store.(cache.Updater); ok {
		return l.allowAtomic(ctx, u, key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return l.failureResult(), fmt.Errorf("failed to get bucket state: %w", err)
	}

	bucket := l.bucket(raw, ok)
	result := l.take(bucket)

	data, err := json.Marshal(bucket.State())
	if err != nil {
		return result, fmt.Errorf("failed to encode bucket state: %w", err)
	}
	// The decision stands even if the write is lost.
	if err := l.store.Set(ctx, key, string(data), l.stateTTL()); err != nil {
		return result, fmt.Errorf("failed to save bucket state: %w", err)
	}
	return result, nil
}

func (l *Limiter) allowAtomic(ctx context.Context, u cache.Updater, key string) (*Result, error) {
	var result *Result
	err := u.Update(ctx, key, l.stateTTL(), func(current string, ok bool) (string, error) {
		bucket := l.bucket(current, ok)
		result = l.take(bucket)

		data, err := json.Marshal(bucket.State())
		if err != nil {
			return "", fmt.Errorf("failed to encode bucket state: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return l.failureResult(), fmt.Errorf("failed to update bucket state: %w", err)
	}
	return result, nil
}

// bucket restores a bucket from its stored state. Absent or corrupt
// state yields a full bucket.
func (l *Limiter) bucket(raw string, ok bool) *TokenBucket {
	if ok {
		var state BucketState
		if json.Unmarshal([]byte(raw), &state) == nil && !state.LastRefill.IsZero() {
			return NewTokenBucketFromState(l.clock, l.limit.capacity(), l.limit.refillRate(), state)
		}
	}
	return NewTokenBucket(l.clock, l.limit.capacity(), l.limit.refillRate())
}

func (l *Limiter) take(bucket *TokenBucket) *Result {
	allowed := bucket.Allow(1)
	result := &Result{
		Allowed:   allowed,
		Limit:     l.limit.Requests,
		Remaining: bucket.Remaining(),
		Reset:     bucket.Reset(),
	}
	if !allowed {
		result.RetryAfter = bucket.Delay(1)
	}
	return result
}

func (l *Limiter) stateTTL() time.Duration {
	return 2 * l.limit.Window
}

func (l *Limiter) failureResult() *Result {
	now := l.clock.Now()
	if l.failureMode == FailOpen {
		return &Result{
			Allowed:   true,
			Limit:     l.limit.Requests,
			Remaining: l.limit.Requests,
			Reset:     now,
		}
	}
	return &Result{
		Allowed:    false,
		Limit:      l.limit.Requests,
		Reset:      now.Add(l.limit.Window),
		RetryAfter: l.limit.Window,
	}
}

// Ping checks the bucket store.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Close releases the bucket store.
func (l *Limiter) Close() error {
	return l.store.Close()
}
