package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/careslot/internal/adapters/cache"
	"github.com/zatekoja/careslot/internal/domain/providers"
	redisclient "github.com/zatekoja/careslot/internal/infrastructure/clients/redis"
)

func newAdapter(t *testing.T) (providers.CacheProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisAdapter(redisclient.NewClientFromRedis(client)), mr
}

func TestRedisAdapter_GetSet(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newAdapter(t)

	_, err := adapter.Get(ctx, "missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 60))
	value, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestRedisAdapter_Expiration(t *testing.T) {
	ctx := context.Background()
	adapter, mr := newAdapter(t)

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 1))
	mr.FastForward(2 * time.Second)

	_, err := adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newAdapter(t)

	require.NoError(t, adapter.Set(ctx, "a", []byte("1"), 60))
	require.NoError(t, adapter.Set(ctx, "b", []byte("2"), 60))
	require.NoError(t, adapter.Delete(ctx, "a", "b", "absent"))
	require.NoError(t, adapter.Delete(ctx))

	_, err := adapter.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = adapter.Get(ctx, "b")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	ctx := context.Background()
	adapter, mr := newAdapter(t)

	for i := 0; i < 250; i++ {
		require.NoError(t, adapter.Set(ctx, fmt.Sprintf("http:cache:/api/providers/search:%03d", i), []byte("x"), 60))
	}
	require.NoError(t, adapter.Set(ctx, "http:cache:/api/specialties:abc", []byte("y"), 60))

	require.NoError(t, adapter.DeletePattern(ctx, "http:cache:/api/providers/search:*"))

	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("http:cache:/api/specialties:abc"))
	require.NoError(t, adapter.DeletePattern(ctx, "nothing:*"))
}

func TestRedisAdapter_Ping(t *testing.T) {
	adapter, mr := newAdapter(t)
	require.NoError(t, adapter.Ping(context.Background()))

	mr.Close()
	assert.Error(t, adapter.Ping(context.Background()))
}
