package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, policy Policy) (*Limiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	limiter := New(NewRedisStore(client, "test"), "login", policy).WithClock(clock.Now)
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter, mr, clock
}

func TestRedisLimiterAllowsUpToLimit(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, Policy{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "10.0.0.1"))
	}
	assert.ErrorIs(t, limiter.Check(ctx, "10.0.0.1"), ErrRateLimited)

	assert.True(t, mr.Exists("test:login:10.0.0.1"))
	assert.Greater(t, mr.TTL("test:login:10.0.0.1"), time.Duration(0))
}

func TestRedisLimiterSlidesWindow(t *testing.T) {
	limiter, _, clock := newRedisLimiter(t, Policy{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "k"))
	clock.Advance(30 * time.Second)
	require.NoError(t, limiter.Check(ctx, "k"))
	assert.ErrorIs(t, limiter.Check(ctx, "k"), ErrRateLimited)

	clock.Advance(31 * time.Second)
	remaining, err := limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	require.NoError(t, limiter.Check(ctx, "k"))
}

func TestRedisLimiterReset(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, Policy{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "k"))
	assert.ErrorIs(t, limiter.Check(ctx, "k"), ErrRateLimited)

	require.NoError(t, limiter.Reset(ctx, "k"))
	assert.False(t, mr.Exists("test:login:k"))
	require.NoError(t, limiter.Check(ctx, "k"))
}

func TestRedisLimiterReportsUnavailableStore(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, Policy{Limit: 1, Window: time.Minute})
	mr.SetError("ERR store down")

	_, err := limiter.Allow(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
