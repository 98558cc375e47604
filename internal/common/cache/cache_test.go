// internal/common/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return NewRedisCache(client), srv
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "integration:user-1:twilio", `{"accountSid":"AC123"}`, time.Minute))

	val, ok, err := c.Get(ctx, "integration:user-1:twilio")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"accountSid":"AC123"}`, val)
}

func TestRedisCache_MissIsNotAnError(t *testing.T) {
	c, _ := newTestCache(t)

	val, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, val)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting nothing is a no-op
	require.NoError(t, c.Delete(ctx))
}

func TestRedisCache_ErrorPropagates(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)

	mock.ExpectGet("k").SetErr(redis.ErrClosed)

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 5*time.Second))
	srv.FastForward(6 * time.Second)

	_, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}
