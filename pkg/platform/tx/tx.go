// Package tx threads a SQL transaction through context so stores can join
// an enclosing transaction without changing their signatures. Result
// publication uses this to make the allocate-and-snapshot write atomic.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

// With stores a SQL transaction in context for downstream store usage.
func With(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// Runner is a transaction boundary services can depend on without knowing
// whether a database backs their stores.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DBRunner is the Runner over a real database.
type DBRunner struct {
	DB *sql.DB
}

func (r DBRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, r.DB, fn)
}

// NopRunner runs fn directly. Used with in-memory stores, which take their
// own locks.
type NopRunner struct{}

func (NopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// RunInTx begins a transaction on db, injects it into the context, and
// runs fn. Rolls back on error or panic, commits otherwise. When the
// context already carries a transaction, fn joins it and commit is left
// to the outer caller.
func RunInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = txn.Rollback()
	}()
	if err := fn(With(ctx, txn)); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
