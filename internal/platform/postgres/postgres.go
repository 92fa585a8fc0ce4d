// Package postgres opens the Postgres connection pool and bootstraps the
// schema used by the book, order and event stores.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const connectTries = 5

// Open connects to url and waits for the server to answer a ping.
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(connectTries))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY,
		custom_id TEXT NOT NULL DEFAULT '',
		book_name TEXT NOT NULL,
		book_author TEXT NOT NULL,
		book_image TEXT NOT NULL,
		price NUMERIC(12, 2) NOT NULL CHECK (price > 0),
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('published', 'unpublished')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS books_custom_id_key ON books (custom_id) WHERE custom_id <> ''`,
	`CREATE INDEX IF NOT EXISTS books_added_by_idx ON books (added_by)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		book_id UUID NOT NULL,
		book_title TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL CHECK (status IN ('pending', 'shipped', 'delivered', 'cancelled')),
		payment_status TEXT NOT NULL CHECK (payment_status IN ('unpaid', 'paid')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_email_idx ON orders (user_email)`,
	`CREATE INDEX IF NOT EXISTS orders_book_id_idx ON orders (book_id)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		aggregate_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data JSONB NOT NULL,
		metadata JSONB,
		version INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (aggregate_id, version)
	)`,
}

// Migrate creates any missing tables and indexes. It is safe to run on every
// start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
