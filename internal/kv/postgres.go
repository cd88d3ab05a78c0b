package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/pkordes/group-trips/migrations"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Store backed by the kv_store table.
type Postgres struct {
	db    db
	close func()
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an existing connection. The caller keeps ownership of
// db; Close is a no-op. The kv_store table must already exist.
func NewPostgres(db db) *Postgres {
	return &Postgres{db: db, close: func() {}}
}

// OpenPostgres applies migrations through database/sql (goose needs it),
// then opens a pgx pool for regular traffic.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv.OpenPostgres: open: %w", err)
	}
	err = migrate(ctx, goose.DialectPostgres, sqlDB, migrations.Postgres())
	sqlDB.Close()
	if err != nil {
		return nil, fmt.Errorf("kv.OpenPostgres: %w", err)
	}

	// pgxpool.New does not open connections immediately; Ping does.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("kv.OpenPostgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kv.OpenPostgres: ping: %w", err)
	}

	return &Postgres{db: pool, close: pool.Close}, nil
}

// Get returns the value stored under key.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT value FROM kv_store WHERE key = @key`

	var value string
	err := p.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv.Postgres.Get: %w", err)
	}
	return []byte(value), true, nil
}

// Set upserts the value under key in a single statement.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (@key, @value, now())
		ON CONFLICT (key) DO UPDATE
		SET value      = excluded.value,
		    updated_at = excluded.updated_at`

	args := pgx.NamedArgs{
		"key":   key,
		"value": string(value),
	}
	if _, err := p.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("kv.Postgres.Set: %w", err)
	}
	return nil
}

// Close closes the pool when the store opened it.
func (p *Postgres) Close() error {
	p.close()
	return nil
}
