package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("flaky")

func TestDoSucceedsAfterRetries(t *testing.T) {
	p := retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}
	var c retry.Counter

	err := retry.Do(context.Background(), p, c.Wrap(func(attempt int) error {
		if attempt < 3 {
			return errFlaky
		}
		return nil
	}))
	assert.NoError(t, err)
	assert.Equal(t, 3, c.Attempts())
}

func TestDoStopsAtAttemptCap(t *testing.T) {
	p := retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}
	var c retry.Counter

	err := retry.Do(context.Background(), p, c.Wrap(func(int) error { return errFlaky }))
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, c.Attempts())
}

func TestDoPermanentIsNotRetried(t *testing.T) {
	p := retry.Policy{Attempts: 5, BaseDelay: time.Millisecond}
	var c retry.Counter

	err := retry.Do(context.Background(), p, c.Wrap(func(int) error {
		return retry.Permanent(errFlaky)
	}))
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, c.Attempts())
}

func TestDoBackoffDoubles(t *testing.T) {
	p := retry.Policy{Attempts: 3, BaseDelay: 20 * time.Millisecond}

	start := time.Now()
	_ = retry.Do(context.Background(), p, func(int) error { return errFlaky })
	// 20ms + 40ms between the three attempts
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestDoHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var c retry.Counter

	err := retry.Do(ctx, retry.Default, c.Wrap(func(int) error { return nil }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Attempts())
}
