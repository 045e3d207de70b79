// Package storage is the relational persistence adapter shared by
// tenant.SQLRegistry and audit.SQLSink: it owns driver selection and schema
// setup, picking Postgres or SQLite by DSN prefix and wrapping the
// connection in sqlx.
package storage

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver, registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // sqlite driver, registered as "sqlite3"

	gerrors "github.com/coderisk/gkg/internal/errors"
)

// DB wraps a sqlx connection with the two DDL statements every caller of
// this package needs: a tenant registry table and an audit log table.
// Queries are written with sqlx's ? placeholder and rebound per-dialect via
// DB.Rebind, so callers never need to special-case Postgres vs SQLite.
type DB struct {
	*sqlx.DB
}

// Open connects to either Postgres (dsn starting with "postgres://") or a
// local SQLite file.
func Open(dsn string) (*DB, error) {
	driver := "sqlite3"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, gerrors.Backend(err, "failed to connect to %s", driver)
	}
	db := &DB{DB: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			policy TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			request_id TEXT NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			logged_at TEXT NOT NULL,
			continuation_token TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return gerrors.Backend(err, "migration failed: %s", stmt)
		}
	}
	return nil
}
