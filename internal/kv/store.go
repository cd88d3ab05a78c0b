// Package kv provides the key-value storage primitive the trip collections
// live in. A Store holds opaque blobs under string keys; it knows nothing
// about trips. Backends: in-memory, SQLite and Postgres.
package kv

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Store is the storage primitive behind the repo layer.
// Set must replace the whole value atomically: a concurrent Get sees either
// the old blob or the new one, never a mix.
type Store interface {
	// Get returns the value stored under key. found is false (and err nil)
	// when the key has never been written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// migrate applies every pending migration in fsys to db.
func migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
