package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

// Tx is the slice of *sql.Tx the repositories and services drive. Services
// begin/commit, repositories query inside it.
type Tx interface {
	Commit() error
	Rollback() error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type DB struct{ SQL *sql.DB }

// Open connects to postgres through the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{SQL: db}, nil
}

// Begin starts a transaction. Returned as Tx so services can be exercised
// against fakes in tests.
func (d *DB) Begin(ctx context.Context) (Tx, error) {
	return d.SQL.BeginTx(ctx, nil)
}

func (d *DB) Close() error { return d.SQL.Close() }

// EnsureSchema applies the embedded DDL. Statements are idempotent
// (IF NOT EXISTS), so this is safe on every start. Executed one statement
// at a time: the pgx extended protocol rejects multi-statement strings.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedDemo inserts the demo users (cards 111111, 222222, 333333) used by
// local environments. ON CONFLICT DO NOTHING keeps it re-runnable.
func (d *DB) SeedDemo(ctx context.Context) error {
	_, err := d.SQL.ExecContext(ctx, seedSQL)
	return err
}
