package rbac

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "rbac:"

// Cache wraps Redis based caching of resolved permissions. A nil Cache
// (or one without a client) degrades to pass-through: every lookup is a
// miss and every write is a no-op, which keeps the resolver correct
// when Redis is not wired.
type Cache struct {
	client      *redis.Client
	ttl         time.Duration
	negativeTTL time.Duration
}

// NewCache instantiates the cache helper. ttl applies to successful
// resolutions, negativeTTL to entries recorded after a backing-store
// failure so that outages are retried quickly.
func NewCache(client *redis.Client, ttl, negativeTTL time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if negativeTTL <= 0 {
		negativeTTL = time.Minute
	}
	return &Cache{client: client, ttl: ttl, negativeTTL: negativeTTL}
}

// TTL returns the standard entry lifetime.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// NegativeTTL returns the shortened lifetime used after failures.
func (c *Cache) NegativeTTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.negativeTTL
}

func roleKey(roleID int64) string {
	return cacheKeyPrefix + "role:" + strconv.FormatInt(roleID, 10)
}

func userRoleKey(userID int64) string {
	return cacheKeyPrefix + "user:" + strconv.FormatInt(userID, 10)
}

func checkKey(actor Actor, resource, action string) string {
	return strings.Join([]string{cacheKeyPrefix + "check", actor.String(), resource, action}, ":")
}

// Fetch loads a cached JSON value into dest. The second return is true
// only on a decodable hit; Redis errors count as misses.
func (c *Cache) Fetch(ctx context.Context, key string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

// Store writes a JSON value under key with the given lifetime. Write
// failures are reported but never block resolution.
func (c *Cache) Store(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// Delete removes entries by key. Removing an absent key succeeds.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Purge walks the rbac key space and removes every entry. Best effort:
// entries written concurrently may survive, so callers treat this as an
// optimization hint rather than a consistency tool.
func (c *Cache) Purge(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
