package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when an insert breaks a
// uniqueness constraint, in particular (estimate_id, version) on snapshots.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the tables the service needs. Snapshots carry the
// UNIQUE (estimate_id, version) constraint the version allocation relies
// on; audit and snapshot rows cascade with their owning aggregate.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			company TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			legal_address TEXT NOT NULL DEFAULT '',
			actual_address TEXT NOT NULL DEFAULT '',
			tax_id TEXT NOT NULL DEFAULT '',
			bank TEXT NOT NULL DEFAULT '',
			account TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS estimates (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			client_id UUID REFERENCES clients(id),
			responsible TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			tax_enabled BOOLEAN NOT NULL DEFAULT true,
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS estimate_items (
			id UUID PRIMARY KEY,
			estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
			position INT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			internal_price DOUBLE PRECISION NOT NULL,
			external_price DOUBLE PRECISION NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS estimate_snapshots (
			id UUID PRIMARY KEY,
			estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
			version INT NOT NULL,
			actor_id UUID NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (estimate_id, version)
		)`,
		`CREATE TABLE IF NOT EXISTS estimate_change_logs (
			id UUID PRIMARY KEY,
			estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
			actor_id UUID NOT NULL,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			details JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS client_change_logs (
			id UUID PRIMARY KEY,
			client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			actor_id UUID NOT NULL,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			details JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS estimate_notes (
			id UUID PRIMARY KEY,
			estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id),
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS estimate_favorites (
			user_id UUID NOT NULL REFERENCES users(id),
			estimate_id UUID NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, estimate_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting the same query
// helpers serve reads and transactional writes.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
