package repository

import (
    "context"
    "database/sql"
)

// txKey is the context key under which an open transaction travels.
type txKey struct{}

// Runner executes functions inside a database transaction.  The open
// *sql.Tx is carried in the context, so repository methods called from
// inside the function transparently join the same transaction.  Every
// core mutation (purchase, cancel, hold placement, payment
// confirmation, scan) runs as exactly one such unit: all of its writes
// commit together or none do.
type Runner struct {
    db *sql.DB
}

// NewRunner returns a Runner bound to the given database handle.
func NewRunner(db *sql.DB) *Runner { return &Runner{db: db} }

// WithTx runs fn inside a transaction.  When the context already
// carries a transaction, fn joins it and commit/rollback are left to
// the outer call.  Otherwise a new transaction is opened; any error
// from fn rolls it back and is returned unchanged, so sentinel errors
// survive the abort.
func (r *Runner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if txFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    txCtx := context.WithValue(ctx, txKey{}, tx)
    if err := fn(txCtx); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
    tx, _ := ctx.Value(txKey{}).(*sql.Tx)
    return tx
}

// executor abstracts *sql.DB and *sql.Tx so repository methods can run
// against whichever the context provides.
type executor interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exec returns the transaction carried by the context, or the plain
// database handle when no transaction is open.
func exec(ctx context.Context, db *sql.DB) executor {
    if tx := txFromContext(ctx); tx != nil {
        return tx
    }
    return db
}
