// Package dbx holds the small database/sql abstractions shared by the
// Postgres and SQLite repositories.
package dbx

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is the subset of database/sql used by repositories. *sql.DB and
// *sql.Tx both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// TxFunc is the unit of work run by WithTx.
type TxFunc func(ctx context.Context, tx DBTX) error

// ErrNoTransactions is returned when db can neither begin a transaction nor
// is one already.
var ErrNoTransactions = errors.New("dbx: handle does not support transactions")

// WithTx runs fn inside a transaction. When db is already a *sql.Tx, fn joins
// it and the outer caller owns commit/rollback. Otherwise a new transaction
// is begun, committed when fn returns nil and rolled back on error or panic
// (the panic is re-raised).
func WithTx(ctx context.Context, db DBTX, opts *sql.TxOptions, fn TxFunc) (err error) {
	if tx, ok := db.(*sql.Tx); ok {
		return fn(ctx, tx)
	}

	b, ok := db.(Beginner)
	if !ok {
		return ErrNoTransactions
	}

	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
