// internal/common/database/redis.go
package database

import (
	"context"
	"time"

	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// Store is a catalog backend connection that can be probed and released.
type Store interface {
	Target() string
	Ping(ctx context.Context) error
	Close() error
}

// RedisClient holds the connection used by the redis catalog source.
type RedisClient struct {
	Client *redis.Client
	addr   string
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, apperrors.NewConfigInvalidError("database.redis.address is empty")
	}
	// The catalog is read once at startup, so a small pool is enough.
	return &RedisClient{
		Client: redis.NewClient(&redis.Options{
			Addr:            cfg.Address,
			Password:        cfg.Password,
			DB:              cfg.DB,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     10 * time.Second,
			PoolSize:        2,
			ConnMaxIdleTime: time.Minute,
		}),
		addr: cfg.Address,
	}, nil
}

func (c *RedisClient) Target() string { return "redis://" + c.addr }

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return apperrors.NewNetworkError(c.Target(), err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
