package settlement

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "auction:settled:"

// RedisConfig holds connection parameters for the Redis registry
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	TLSEnabled bool
	KeyPrefix  string
}

// RedisRegistry stores one key per settled auction. Keys never expire:
// settlement is permanent.
type RedisRegistry struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRegistry connects to Redis and verifies the connection with a ping
func NewRedisRegistry(ctx context.Context, cfg RedisConfig) (*RedisRegistry, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return NewRedisRegistryFromClient(rdb, cfg.KeyPrefix), nil
}

// NewRedisRegistryFromClient wraps an existing client
func NewRedisRegistryFromClient(rdb *redis.Client, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisRegistry{rdb: rdb, prefix: prefix}
}

func (r *RedisRegistry) key(auctionID string) string {
	return r.prefix + auctionID
}

func (r *RedisRegistry) IsSettled(ctx context.Context, auctionID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(auctionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check settlement %s: %w", auctionID, err)
	}
	return n > 0, nil
}

// MarkSettled records settlement with SETNX so the first timestamp wins
func (r *RedisRegistry) MarkSettled(ctx context.Context, auctionID string, at time.Time) error {
	ts := strconv.FormatInt(at.UnixNano(), 10)
	if err := r.rdb.SetNX(ctx, r.key(auctionID), ts, 0).Err(); err != nil {
		return fmt.Errorf("redis: mark settled %s: %w", auctionID, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}
