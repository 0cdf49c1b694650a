package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry sequence. Attempts counts the first try, so the
// default of 3 means one call plus two retries, waiting BaseDelay then
// 2*BaseDelay in between.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

var Default = Policy{Attempts: 3, BaseDelay: time.Second}

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = exp
	if p.BaseDelay <= 0 {
		b = &backoff.ZeroBackOff{}
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, the policy runs out
// of attempts or ctx is done. op receives the 1-based attempt number.
func Do(ctx context.Context, p Policy, op func(attempt int) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		return op(attempt)
	}, p.backOff(ctx))
}

// Counter records how many times a wrapped op ran.
type Counter struct{ n int }

func (c *Counter) Wrap(op func(attempt int) error) func(attempt int) error {
	return func(attempt int) error {
		c.n = attempt
		return op(attempt)
	}
}

func (c *Counter) Attempts() int { return c.n }
