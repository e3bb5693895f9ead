package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres class 40 codes that indicate the transaction lost a race and is
// safe to re-run from scratch.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// InTx runs fn inside a transaction, committing on success and rolling back
// on error. If the transaction fails with a serialization or deadlock error
// it is re-executed once from scratch; business errors surface as-is.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	err := runOnce(ctx, db, fn)
	if err != nil && isRetryable(err) {
		err = runOnce(ctx, db, fn)
	}
	return err
}

func runOnce(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pqSerializationFailure || code == pqDeadlockDetected
}
