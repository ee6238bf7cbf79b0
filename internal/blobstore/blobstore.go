// Package blobstore selects where the trust and verification stores keep
// their serialized state: the local SQLite database, Redis, or PostgreSQL.
package blobstore

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/meshtrust/internal/config"
	"github.com/ziadkadry99/meshtrust/internal/db"
)

// Blobs is a scoped key-value view. It matches the persistence interface
// of the trust and verification stores.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Backend hands out isolated namespaces over one storage connection.
type Backend interface {
	Name() string
	Namespace(name string) Blobs
	Close() error
}

// Open returns the backend named by cfg.Backend. The SQLite backend reuses
// local and its Close is a no-op; the caller still owns local.
func Open(ctx context.Context, cfg config.StorageConfig, local *db.DB) (Backend, error) {
	switch cfg.Backend {
	case "", config.BackendSQLite:
		return &sqliteBackend{db: local}, nil
	case config.BackendRedis:
		b, err := OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendPostgres:
		b, err := OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type sqliteBackend struct {
	db *db.DB
}

func (b *sqliteBackend) Name() string { return string(config.BackendSQLite) }

func (b *sqliteBackend) Namespace(name string) Blobs { return b.db.Namespace(name) }

func (b *sqliteBackend) Close() error { return nil }
