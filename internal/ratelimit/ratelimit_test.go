package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiter_DelayWithinBounds(t *testing.T) {
	r := NewSimpleRateLimiter(2*time.Second, 4*time.Second)

	var waited []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}

	require.Len(t, waited, 50)
	for _, d := range waited {
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 4*time.Second)
	}
}

func TestSimpleRateLimiter_FixedDelay(t *testing.T) {
	r := NewSimpleRateLimiter(time.Second, time.Second)
	assert.Equal(t, time.Second, r.calculateDelay())

	r = NewSimpleRateLimiter(3*time.Second, time.Second)
	assert.Equal(t, 3*time.Second, r.calculateDelay())
}

func TestSimpleRateLimiter_Canceled(t *testing.T) {
	r := NewSimpleRateLimiter(time.Hour, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
