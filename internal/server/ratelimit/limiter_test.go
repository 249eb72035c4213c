package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterTest(t *testing.T, maxAttempts int) (*PinLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, Config{MaxAttempts: maxAttempts, Window: time.Minute}), mr
}

func TestPinLimiter_BlocksAfterBudget(t *testing.T) {
	l, _ := newLimiterTest(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "ann@x.com"))
		require.NoError(t, l.Fail(ctx, "ann@x.com"))
	}

	assert.ErrorIs(t, l.Check(ctx, "ann@x.com"), common.ErrRateLimited)
	assert.NoError(t, l.Check(ctx, "bob@x.com"))
}

func TestPinLimiter_KeyIsCaseInsensitive(t *testing.T) {
	l, mr := newLimiterTest(t, 1)
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, " Ann@X.com "))

	assert.ErrorIs(t, l.Check(ctx, "ann@x.com"), common.ErrRateLimited)
	assert.True(t, mr.Exists("shiftdesk:pin_attempts:ann@x.com"))
}

func TestPinLimiter_WindowExpires(t *testing.T) {
	l, mr := newLimiterTest(t, 1)
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, "ann@x.com"))
	require.NoError(t, l.Fail(ctx, "ann@x.com"))
	assert.Equal(t, time.Minute, mr.TTL("shiftdesk:pin_attempts:ann@x.com"))

	mr.FastForward(time.Minute + time.Second)

	assert.NoError(t, l.Check(ctx, "ann@x.com"))
}

func TestPinLimiter_Reset(t *testing.T) {
	l, _ := newLimiterTest(t, 1)
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, "ann@x.com"))
	require.ErrorIs(t, l.Check(ctx, "ann@x.com"), common.ErrRateLimited)

	require.NoError(t, l.Reset(ctx, "ann@x.com"))
	assert.NoError(t, l.Check(ctx, "ann@x.com"))
}

func TestPinLimiter_RedisDown(t *testing.T) {
	l, mr := newLimiterTest(t, 1)
	mr.Close()
	ctx := context.Background()

	assert.ErrorIs(t, l.Check(ctx, "ann@x.com"), ErrRedisUnavailable)
	assert.ErrorIs(t, l.Fail(ctx, "ann@x.com"), ErrRedisUnavailable)
	assert.ErrorIs(t, l.Reset(ctx, "ann@x.com"), ErrRedisUnavailable)
}
