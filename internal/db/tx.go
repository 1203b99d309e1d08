package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Transactor runs a unit of work inside a single database transaction.
// Repositories accept a sqlx.ExtContext so they work with both *sqlx.DB and *sqlx.Tx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

type txRunner struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &txRunner{db: db}
}

func (r *txRunner) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
