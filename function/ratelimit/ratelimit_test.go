package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/dimasma0305/ctfscrape/function/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledDoesNotWait(t *testing.T) {
	l := ratelimit.New(0)
	assert.False(t, l.Enabled())

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTenPerSecond(t *testing.T) {
	l := ratelimit.New(10)
	assert.True(t, l.Enabled())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	// first token is free, the next two are 100ms apart
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	l := ratelimit.New(0.5)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestNilLimiter(t *testing.T) {
	var l *ratelimit.Limiter
	assert.NoError(t, l.Wait(context.Background()))
}
