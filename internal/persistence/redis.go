package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/config"
)

// Cache wraps the go-redis client backing one-time tokens and client sessions.
type Cache struct {
	client *redis.Client
}

// OpenCache connects to Redis. An unreachable server is logged rather than
// fatal; readiness reports it until it recovers.
func OpenCache(ctx context.Context, cfg config.RedisConfig, appName string, logger *zap.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  appName,
		PoolSize:    cfg.PoolSize,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	ping := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	if err := retry(ctx, cfg.ConnectAttempts, 500*time.Millisecond, logger.With(zap.String("dependency", "redis")), ping); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Cache{client: client}
}

// Client exposes the raw client for the token and session stores.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Ping verifies Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis client not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Stats reports connection usage for the pool collector.
func (c *Cache) Stats() PoolStats {
	if c == nil || c.client == nil {
		return PoolStats{}
	}
	st := c.client.PoolStats()
	return PoolStats{
		Total:    int64(st.TotalConns),
		Idle:     int64(st.IdleConns),
		InUse:    int64(st.TotalConns) - int64(st.IdleConns),
		WaitHits: int64(st.Timeouts),
	}
}

// Close closes the client.
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		_ = c.client.Close()
	}
}
