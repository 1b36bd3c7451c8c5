package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outgoing requests so a client never exceeds a steady rate.
// A nil *Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing ratePerSecond requests with bursts of
// up to burst. It returns nil when ratePerSecond is not positive.
func NewPacer(ratePerSecond float64, burst int) *Pacer {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Reserve takes a token when one is available and returns zero;
// otherwise it returns the time to wait before one frees up and takes
// nothing.
func (p *Pacer) Reserve() time.Duration {
	if p == nil {
		return 0
	}
	now := time.Now()
	if p.limiter.AllowN(now, 1) {
		return 0
	}
	r := p.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}

// Wait blocks until a token is taken or ctx is done. A wait that would
// outlast ctx's deadline fails at once with context.DeadlineExceeded.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("outbound pacing: %w", context.DeadlineExceeded)
	}
	return nil
}
