// internal/repository/transaction_repo.go
package repository

import (
	"context"

	"finflow-ledger/internal/domain"
)

// TransactionRepository defines the interface for ledger entry operations.
// Entries are append-only: there is no update or delete.
type TransactionRepository interface {
	// CreateTransaction appends a ledger entry. It returns util.ErrDuplicateEntry when the
	// reference is already taken.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// ListTransactions returns entries matching the filter, newest first, and the total count.
	ListTransactions(ctx context.Context, q DBExecutor, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
	// ListTransactionsByUserChronological returns every entry of a user, oldest first.
	ListTransactionsByUserChronological(ctx context.Context, q DBExecutor, userID int64) ([]domain.Transaction, error)
	// GetLatestTransaction returns the most recent entry of a user or util.ErrNotFound.
	GetLatestTransaction(ctx context.Context, q DBExecutor, userID int64) (*domain.Transaction, error)
}
