package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewMemoryRateLimiter(time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := rl.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, remaining, reset, err := rl.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.False(t, reset.IsZero())
}

func TestMemoryRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewMemoryRateLimiter(time.Minute, 1)
	ctx := context.Background()

	allowed, _, _, err := rl.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = rl.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, _, err = rl.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, allowed, "a different key has its own window")
}

func TestMemoryRateLimiterReset(t *testing.T) {
	rl := NewMemoryRateLimiter(time.Minute, 1)
	ctx := context.Background()

	_, _, _, err := rl.Allow(ctx, "client-a")
	require.NoError(t, err)

	require.NoError(t, rl.Reset(ctx, "client-a"))

	allowed, _, _, err := rl.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiterWithLimit(t *testing.T) {
	rl := NewMemoryRateLimiter(time.Minute, 100)
	stricter := rl.WithLimit(1, time.Minute)
	ctx := context.Background()

	allowed, _, _, err := stricter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = stricter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed)
}
