package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each namespaced key as a plain Redis string under
// "<prefix><namespace>:<key>". Values never expire.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis connects to the Redis server at url (redis://...) and pings it.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisBackend(rdb, prefix), nil
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(rdb *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Namespace(name string) Blobs {
	return &redisNamespace{rdb: b.rdb, prefix: b.prefix + name + ":"}
}

func (b *RedisBackend) Close() error { return b.rdb.Close() }

type redisNamespace struct {
	rdb    *redis.Client
	prefix string
}

func (n *redisNamespace) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := n.rdb.Get(ctx, n.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (n *redisNamespace) Put(ctx context.Context, key string, value []byte) error {
	if err := n.rdb.Set(ctx, n.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
