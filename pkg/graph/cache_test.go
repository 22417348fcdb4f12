package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBuilder struct {
	builds atomic.Int32
	delay  time.Duration
	err    error
}

func (b *countingBuilder) Build(_ context.Context) (*Graph, error) {
	b.builds.Add(1)
	time.Sleep(b.delay)
	if b.err != nil {
		return nil, b.err
	}
	return chain(), nil
}

type fakeVersions struct {
	mu      sync.Mutex
	version int64
	err     error
}

func (v *fakeVersions) Current(context.Context) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version, v.err
}

func (v *fakeVersions) Bump(context.Context) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version++
	return v.version, v.err
}

func TestCache_ReusesSnapshotWithinTTL(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{}
	cache := NewCache(builder, time.Minute, testLogger())

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	second, err := cache.Get(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builder.builds.Load())
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(builder, time.Minute, testLogger(), WithClock(func() time.Time { return now }))

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builder.builds.Load())
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{}
	cache := NewCache(builder, time.Hour, testLogger())

	_, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.OnApplied(ctx, nil))
	_, err = cache.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), builder.builds.Load())
}

func TestCache_CoalescesConcurrentBuilds(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{delay: 50 * time.Millisecond}
	cache := NewCache(builder, time.Hour, testLogger())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builder.builds.Load())
}

func TestCache_BuildErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{err: errors.New("db down")}
	cache := NewCache(builder, time.Hour, testLogger())

	_, err := cache.Get(ctx)
	require.Error(t, err)

	builder.err = nil
	g, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Equal(t, int32(2), builder.builds.Load())
}

func TestCache_RemoteVersionInvalidatesOtherProcesses(t *testing.T) {
	ctx := context.Background()
	versions := &fakeVersions{}
	builderA, builderB := &countingBuilder{}, &countingBuilder{}
	cacheA := NewCache(builderA, time.Hour, testLogger(), WithVersionStore(versions))
	cacheB := NewCache(builderB, time.Hour, testLogger(), WithVersionStore(versions))

	_, err := cacheA.Get(ctx)
	require.NoError(t, err)
	_, err = cacheB.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, cacheA.Invalidate(ctx))

	_, err = cacheB.Get(ctx)
	require.NoError(t, err)
	_, err = cacheB.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builderB.builds.Load())

	// an unreachable version store falls back to the local TTL
	versions.err = errors.New("redis down")
	_, err = cacheB.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builderB.builds.Load())
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	builder := &countingBuilder{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(builder, 0, testLogger(), WithClock(func() time.Time { return now }))

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builder.builds.Load())

	// the coalesced rebuild path reuses a graph another caller just built
	// instead of building again
	assert.True(t, cache.live(first, now.Add(-365*24*time.Hour)))
	assert.False(t, cache.live(nil, now))

	ttl := NewCache(builder, time.Minute, testLogger(), WithClock(func() time.Time { return now }))
	assert.True(t, ttl.live(first, now.Add(-30*time.Second)))
	assert.False(t, ttl.live(first, now.Add(-2*time.Minute)))
}
