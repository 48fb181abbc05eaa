package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitCache stores resolved ceilings per organization.
type LimitCache interface {
	Get(ctx context.Context, orgID string) (int, bool, error)
	Set(ctx context.Context, orgID string, limit int) error
	Invalidate(ctx context.Context, orgID string) error
}

const keyPrefix = "helpdesk:entitlement:max_users:"

// RedisCache keeps ceilings in Redis with a TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps client.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(orgID string) string {
	return keyPrefix + orgID
}

func (c *RedisCache) Get(ctx context.Context, orgID string) (int, bool, error) {
	limit, err := c.client.Get(ctx, key(orgID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return limit, true, nil
}

func (c *RedisCache) Set(ctx context.Context, orgID string, limit int) error {
	return c.client.Set(ctx, key(orgID), limit, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, orgID string) error {
	return c.client.Del(ctx, key(orgID)).Err()
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (int, bool, error) { return 0, false, nil }
func (NopCache) Set(context.Context, string, int) error          { return nil }
func (NopCache) Invalidate(context.Context, string) error        { return nil }
