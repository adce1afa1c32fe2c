package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "guests:detail:G001", []byte(`{"guest_id":"G001"}`), time.Minute))

	value, hit, err := c.Get(ctx, "guests:detail:G001")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte(`{"guest_id":"G001"}`), value)

	_, hit, err = c.Get(ctx, "guests:detail:unknown")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "guests:stats", []byte("cached"), 30*time.Second))

	// Still inside the TTL.
	now = now.Add(30 * time.Second)
	_, hit, err := c.Get(ctx, "guests:stats")
	require.NoError(t, err)
	assert.True(t, hit)

	// One tick past the TTL the entry is gone.
	now = now.Add(time.Millisecond)
	_, hit, err = c.Get(ctx, "guests:stats")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCacheSweep(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "guests:detail:G001", []byte("a"), 10*time.Second))
	require.NoError(t, c.Set(ctx, "guests:detail:G002", []byte("b"), time.Hour))

	now = now.Add(time.Minute)
	c.Sweep()

	_, hit, err := c.Get(ctx, "guests:detail:G001")
	require.NoError(t, err)
	assert.False(t, hit, "expired entry must be swept")

	_, hit, err = c.Get(ctx, "guests:detail:G002")
	require.NoError(t, err)
	assert.True(t, hit, "live entry must survive the sweep")
}

func TestMemoryCacheInvalidatePattern(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, cache.DetailKey("G001"), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, cache.ListKey("", "", 1, 50), []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, cache.StatsKey(), []byte("c"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:key", []byte("d"), time.Minute))

	require.NoError(t, c.InvalidatePattern(ctx, "guests:*"))

	for _, key := range []string{cache.DetailKey("G001"), cache.ListKey("", "", 1, 50), cache.StatsKey()} {
		_, hit, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, hit, "key %s must be invalidated", key)
	}

	_, hit, err := c.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.True(t, hit, "keys outside the pattern must survive")
}

func TestMemoryCacheExpiredReadKeepsConcurrentWrite(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	// A read of an expired entry evicts it; a Set racing with that read
	// must never lose its fresh value to the eviction.
	for i := 0; i < 200; i++ {
		require.NoError(t, c.Set(ctx, "guests:stats", []byte("stale"), -time.Second))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Get(ctx, "guests:stats")
		}()
		go func() {
			defer wg.Done()
			c.Set(ctx, "guests:stats", []byte("fresh"), time.Minute)
		}()
		wg.Wait()

		value, hit, err := c.Get(ctx, "guests:stats")
		require.NoError(t, err)
		require.True(t, hit, "the fresh write must survive the expired-read eviction")
		require.Equal(t, []byte("fresh"), value)
	}
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	c := cache.NewMemoryCache()
	c.StartSweep(time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
