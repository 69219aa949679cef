package db

import (
	"context"
	"database/sql"
	"sync"
)

// DBTX is the subset of database/sql used by repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// ContextWithTx returns a copy of ctx carrying tx.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by ContextWithTx, if any.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Conn returns the transaction carried by ctx, falling back to fallback.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}

type rollbackKey struct{}

type rollbackHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// ContextWithRollbackHooks returns a copy of ctx that collects OnRollback
// callbacks, and a function that runs them newest first. The owner of the
// transaction calls it when the transaction does not commit.
func ContextWithRollbackHooks(ctx context.Context) (context.Context, func(ctx context.Context)) {
	hooks := &rollbackHooks{}
	run := func(ctx context.Context) {
		hooks.mu.Lock()
		fns := hooks.fns
		hooks.fns = nil
		hooks.mu.Unlock()
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i](ctx)
		}
	}
	return context.WithValue(ctx, rollbackKey{}, hooks), run
}

// OnRollback registers fn to undo work done outside the transaction carried
// by ctx, such as a session written to another store. It reports false when
// ctx collects no hooks, in which case fn is never called.
func OnRollback(ctx context.Context, fn func(ctx context.Context)) bool {
	hooks, ok := ctx.Value(rollbackKey{}).(*rollbackHooks)
	if !ok {
		return false
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
	return true
}

// WithTx runs fn inside a transaction and commits on success or rolls back on
// error or panic. Panics are rethrown. OnRollback hooks registered by fn run
// when the transaction does not commit. When ctx already carries a
// transaction, fn joins it and the owner of that transaction decides the
// outcome.
//
//	err := db.WithTx(ctx, pool, func(ctx context.Context) error {
//	    _, err := users.Create(ctx, email, hash, name)
//	    return err
//	})
func WithTx(ctx context.Context, pool *sql.DB, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx, rollbackHooks := ContextWithRollbackHooks(ContextWithTx(ctx, tx))

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			rollbackHooks(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			rollbackHooks(context.WithoutCancel(ctx))
			return
		}
		if err = tx.Commit(); err != nil {
			rollbackHooks(context.WithoutCancel(ctx))
		}
	}()

	err = fn(txCtx)
	return err
}
