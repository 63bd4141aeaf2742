package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set REDIS_TEST_ADDR to run against a real server. The test flushes the
// selected database.
func TestRedisCache_ClearOnlyTouchesNamespace(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())

	c := NewRedisCacheFromClient(client, "test")
	defer c.Close()

	require.NoError(t, client.Set(ctx, "profile:A123", "stored", 0).Err())
	require.NoError(t, c.Set(ctx, "profile:A123", []byte("cached"), time.Minute))

	got, err := c.Get(ctx, "profile:A123")
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), got)

	require.NoError(t, c.Clear(ctx))

	_, err = c.Get(ctx, "profile:A123")
	assert.ErrorIs(t, err, ErrNotFound)

	outside, err := client.Get(ctx, "profile:A123").Result()
	require.NoError(t, err)
	assert.Equal(t, "stored", outside)
}
