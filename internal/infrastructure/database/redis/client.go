// Package redis provides the Redis client used for cross-replica
// coordination: the distributed training lock and model generation
// broadcasts.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeCacheError, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "redis connection failed")
)

const connectTimeout = 5 * time.Second

// Client wraps a go-redis UniversalClient. One address gives a standalone
// client, a master name gives a sentinel client, several addresses a cluster
// client.
type Client struct {
	rdb       redis.UniversalClient
	keyPrefix string
	logger    logging.Logger
	mu        sync.RWMutex
	closed    bool
}

// NewClient connects and pings.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	c := NewClientFromUniversal(rdb, cfg.KeyPrefix, log)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	log.Info("Redis client connected", logging.Strings("addrs", cfg.Addrs), logging.Int("db", cfg.DB))
	return c, nil
}

// NewClientFromUniversal wraps an existing client without pinging.
func NewClientFromUniversal(rdb redis.UniversalClient, keyPrefix string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if keyPrefix == "" {
		keyPrefix = config.DefaultRedisKeyPrefix
	}
	return &Client{rdb: rdb, keyPrefix: keyPrefix, logger: log}
}

// Key namespaces parts under the configured prefix.
func (c *Client) Key(parts ...string) string {
	k := c.keyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}
