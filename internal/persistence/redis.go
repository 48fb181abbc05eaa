package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/config"
	"github.com/deskforge/helpdesk/internal/entitlement"
)

// Redis holds the go-redis client backing the entitlement cache.
type Redis struct {
	Client    *redis.Client
	reachable bool
}

// NewRedis connects and records whether the server answered at startup. An
// empty address leaves Redis disabled.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not provided; entitlement cache disabled")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	r := &Redis{Client: client}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis; entitlement cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		return r
	}
	r.reachable = true
	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return r
}

// LimitCache returns the Redis-backed entitlement cache, or a no-op cache
// when Redis was unreachable at startup or ttl disables caching.
func (r *Redis) LimitCache(ttl time.Duration) entitlement.LimitCache {
	if r == nil || !r.reachable || ttl <= 0 {
		return entitlement.NopCache{}
	}
	return entitlement.NewRedisCache(r.Client, ttl)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
