// tx.go provides the transaction boundary helper shared by repositories whose
// mutations must commit or roll back together.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// RunInTransaction begins a transaction, runs fn, and commits. Any error from fn
// rolls the transaction back and is returned to the caller unchanged.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
