package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopNeverWaits(t *testing.T) {
	p := NewInterval(0)
	assert.IsType(t, Noop{}, p)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestNoopHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Noop{}.Wait(ctx), context.Canceled)
}

func TestIntervalSpacesCalls(t *testing.T) {
	p := NewInterval(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// first call is free, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestIntervalCancelled(t *testing.T) {
	p := NewInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Wait(ctx))

	cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestSetInterval(t *testing.T) {
	p := NewInterval(time.Hour).(*Interval)
	require.NoError(t, p.Wait(context.Background()))

	p.SetInterval(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Wait(ctx))
}
