package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter caps outbound requests per second across every goroutine sharing
// it. A nil *Limiter never waits.
type Limiter struct {
	l *rate.Limiter
}

// New returns a limiter allowing rps requests per second. rps <= 0 disables
// limiting.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until the next request may go out or ctx is done.
func (r *Limiter) Wait(ctx context.Context) error {
	if r == nil || r.l == nil {
		return ctx.Err()
	}
	return r.l.Wait(ctx)
}

func (r *Limiter) Enabled() bool {
	return r != nil && r.l != nil
}
