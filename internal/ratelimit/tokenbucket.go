package ratelimit

import (
	"math"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

// TokenBucket implements the token bucket algorithm.
// Tokens are added at RefillRate per second up to Capacity and each
// request consumes one or more tokens.
type TokenBucket struct {
	Capacity   float64
	RefillRate float64
	Tokens     float64
	LastRefill time.Time

	clock clock.Clock
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(clk clock.Clock, capacity int, refillRate float64) *TokenBucket {
	clk = clock.OrSystem(clk)
	return &TokenBucket{
		Capacity:   float64(capacity),
		RefillRate: refillRate,
		Tokens:     float64(capacity),
		LastRefill: clk.Now(),
		clock:      clk,
	}
}

// NewTokenBucketFromState restores a bucket persisted with State.
func NewTokenBucketFromState(clk clock.Clock, capacity int, refillRate float64, state BucketState) *TokenBucket {
	tb := &TokenBucket{
		Capacity:   float64(capacity),
		RefillRate: refillRate,
		Tokens:     math.Min(float64(capacity), state.Tokens),
		LastRefill: state.LastRefill,
		clock:      clock.OrSystem(clk),
	}
	return tb
}

// BucketState is the persisted part of a TokenBucket.
type BucketState struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

// State returns the bucket's current tokens and refill time.
func (tb *TokenBucket) State() BucketState {
	tb.refill()
	return BucketState{Tokens: tb.Tokens, LastRefill: tb.LastRefill}
}

// Allow consumes n tokens if they are available.
func (tb *TokenBucket) Allow(n int) bool {
	tb.refill()

	need := float64(n)
	if tb.Tokens >= need {
		tb.Tokens -= need
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.refill()
	return int(math.Floor(tb.Tokens))
}

// Delay returns how long until n tokens are available.
func (tb *TokenBucket) Delay(n int) time.Duration {
	tb.refill()

	missing := float64(n) - tb.Tokens
	if missing <= 0 {
		return 0
	}
	d := time.Duration(missing / tb.RefillRate * float64(time.Second))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// Reset returns when the bucket will be full again.
func (tb *TokenBucket) Reset() time.Time {
	tb.refill()
	missing := tb.Capacity - tb.Tokens
	if missing <= 0 || tb.RefillRate <= 0 {
		return tb.LastRefill
	}
	return tb.LastRefill.Add(time.Duration(missing / tb.RefillRate * float64(time.Second)))
}

func (tb *TokenBucket) refill() {
	now := tb.clock.Now()
	elapsed := now.Sub(tb.LastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.Tokens = math.Min(tb.Capacity, tb.Tokens+elapsed*tb.RefillRate)
	tb.LastRefill = now
}
