package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the database handle. Both *sql.DB and *sql.Tx satisfy
// it, so store implementations work unchanged inside and outside of
// transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
