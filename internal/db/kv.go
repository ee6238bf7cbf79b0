package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Namespace is a scoped view of the kv_entries table. Keys written through
// one namespace are invisible to every other namespace.
type Namespace struct {
	db   *DB
	name string
}

// Namespace returns the key-value scope with the given name.
func (d *DB) Namespace(name string) *Namespace {
	return &Namespace{db: d, name: name}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Get returns the blob stored under key, or nil if the key has never been written.
func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := n.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`,
		n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", n.name, key, err)
	}
	return value, nil
}

// Put replaces the blob stored under key.
func (n *Namespace) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := n.db.ExecContext(ctx, `
		INSERT INTO kv_entries (id, namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		uuid.NewString(),
		n.name,
		key,
		value,
		time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", n.name, key, err)
	}
	return nil
}

// Delete removes key from the namespace. Deleting a missing key is not an error.
func (n *Namespace) Delete(ctx context.Context, key string) error {
	_, err := n.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE namespace = ? AND key = ?`,
		n.name, key,
	)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", n.name, key, err)
	}
	return nil
}
