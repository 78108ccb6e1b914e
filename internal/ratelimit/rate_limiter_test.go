package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(2)

	assert.NoError(t, rl.Wait(context.Background()))
	assert.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx), "third request inside the same minute should not get a token")
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1)
	assert.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	for i := 0; i < 100; i++ {
		assert.NoError(t, rl.Wait(ctx))
	}
}
