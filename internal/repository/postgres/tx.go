package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"portalapi/internal/repository"
)

// TxRunner implements repository.TxRunner on a database/sql pool.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner creates a TxRunner bound to db.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

var _ repository.TxRunner = (*TxRunner)(nil)

// WithinTx begins a transaction, passes it to fn as a Querier and commits on
// a nil return. Any error from fn rolls everything back and is returned
// unchanged so callers can still classify it.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
