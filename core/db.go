package core

import (
	"context"
	"database/sql"
)

// DBExecutor is the subset of sqlx operations the repositories need.
// Both *sqlx.DB and *sqlx.Tx satisfy it, so a service can run a repository
// call inside a transaction without the repository knowing.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
