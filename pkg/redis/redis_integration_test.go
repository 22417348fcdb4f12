//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/testutil"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/redis"
)

func TestGraphVersion(t *testing.T) {
	ctx := context.Background()
	client := redis.Wrap(testutil.NewRedis(t), testutil.NewLogger())
	versions := redis.NewGraphVersion(client, "")

	current, err := versions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	bumped, err := versions.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)

	current, err = versions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	client := redis.Wrap(testutil.NewRedis(t), testutil.NewLogger())
	locker := redis.NewLocker(client, "")

	lock, err := locker.Acquire(ctx, "company:123", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "company:123", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), redis.ErrLockNotHeld)

	ran := false
	err = locker.WithLock(ctx, "company:123", time.Minute, time.Second, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
