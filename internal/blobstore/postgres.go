package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// PostgresBackend keeps namespaced blobs in a kv_entries table.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres connects with the lib/pq driver and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, postgresSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating kv_entries: %w", err)
	}
	return &PostgresBackend{db: sqlDB}, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Namespace(name string) Blobs {
	return &postgresNamespace{db: b.db, name: name}
}

func (b *PostgresBackend) Close() error { return b.db.Close() }

type postgresNamespace struct {
	db   *sql.DB
	name string
}

func (n *postgresNamespace) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := n.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`,
		n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s/%s: %w", n.name, key, err)
	}
	return value, nil
}

func (n *postgresNamespace) Put(ctx context.Context, key string, value []byte) error {
	_, err := n.db.ExecContext(ctx, `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		n.name, key, value,
	)
	if err != nil {
		return fmt.Errorf("postgres put %s/%s: %w", n.name, key, err)
	}
	return nil
}
