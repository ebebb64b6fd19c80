package rbac

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, 15*time.Minute, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "rbac:role:1", []string{"games.read"}, cache.TTL()))

	var got []string
	require.True(t, cache.Fetch(ctx, "rbac:role:1", &got))
	assert.Equal(t, []string{"games.read"}, got)

	require.NoError(t, cache.Delete(ctx, "rbac:role:1"))
	assert.False(t, cache.Fetch(ctx, "rbac:role:1", &got))
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "rbac:check:role:1:games:read", true, cache.NegativeTTL()))

	var got bool
	require.True(t, cache.Fetch(ctx, "rbac:check:role:1:games:read", &got))

	mr.FastForward(2 * time.Minute)
	assert.False(t, cache.Fetch(ctx, "rbac:check:role:1:games:read", &got))
}

func TestCachePurgeScopedToPrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "rbac:role:1", 1, time.Minute))
	require.NoError(t, cache.Store(ctx, "rbac:user:42", 2, time.Minute))
	require.NoError(t, mr.Set("session:abc", "keep"))

	require.NoError(t, cache.Purge(ctx))

	var got int
	assert.False(t, cache.Fetch(ctx, "rbac:role:1", &got))
	assert.False(t, cache.Fetch(ctx, "rbac:user:42", &got))
	assert.True(t, mr.Exists("session:abc"))
}

func TestCacheNilSafety(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	assert.NoError(t, cache.Store(ctx, "rbac:role:1", 1, time.Minute))
	assert.NoError(t, cache.Delete(ctx, "rbac:role:1"))
	assert.NoError(t, cache.Purge(ctx))
	assert.Zero(t, cache.TTL())

	var got int
	assert.False(t, cache.Fetch(ctx, "rbac:role:1", &got))
}

func TestNewCacheDefaults(t *testing.T) {
	cache := NewCache(nil, 0, 0)
	assert.Equal(t, 15*time.Minute, cache.TTL())
	assert.Equal(t, time.Minute, cache.NegativeTTL())
}
