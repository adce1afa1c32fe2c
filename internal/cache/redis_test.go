package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisCacheIntegration exercises the Redis backend against a real
// container: TTL expiry and SCAN-based pattern invalidation.
func TestRedisCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	c := cache.NewRedisCache(client)
	defer c.Close()

	// Round trip.
	require.NoError(t, c.Set(ctx, cache.DetailKey("G001"), []byte("cached guest"), time.Minute))
	value, hit, err := c.Get(ctx, cache.DetailKey("G001"))
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("cached guest"), value)

	// Miss.
	_, hit, err = c.Get(ctx, cache.DetailKey("unknown"))
	require.NoError(t, err)
	assert.False(t, hit)

	// TTL expiry is Redis-native.
	require.NoError(t, c.Set(ctx, cache.StatsKey(), []byte("stats"), time.Second))
	time.Sleep(1500 * time.Millisecond)
	_, hit, err = c.Get(ctx, cache.StatsKey())
	require.NoError(t, err)
	assert.False(t, hit, "entry must expire after its TTL")

	// Pattern invalidation clears every guest key but nothing else.
	require.NoError(t, c.Set(ctx, cache.DetailKey("G002"), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, cache.ListKey("CHECKED_IN", "", 1, 50), []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "session:abc", []byte("c"), time.Minute))

	require.NoError(t, c.InvalidatePattern(ctx, "guests:*"))

	_, hit, err = c.Get(ctx, cache.DetailKey("G002"))
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = c.Get(ctx, cache.ListKey("CHECKED_IN", "", 1, 50))
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = c.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.True(t, hit, "keys outside the pattern must survive")
}
