// internal/service/tx.go
package service

import (
	"context"
	"fmt"

	"finflow-ledger/internal/repository"
	"finflow-ledger/pkg/db"
)

// txRunner runs a unit of work inside one database transaction using the injected
// begin/commit/rollback functions. The work either commits as a whole or not at all.
type txRunner struct {
	tx db.TxManager
}

func (r txRunner) withinTx(ctx context.Context, op string, fn func(q repository.DBExecutor) error) error {
	txController, err := r.tx.Begin(ctx, r.tx.Beginner)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer r.tx.Rollback(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
	}

	if err := fn(txExecutor); err != nil {
		return err
	}

	if err := r.tx.Commit(txController); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return nil
}
