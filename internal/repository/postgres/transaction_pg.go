// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
	"finflow-ledger/pkg/db"
)

const (
	transactionColumns = `id, user_id, reference, transaction_type, amount, fee, balance_before, balance_after, status, description, created_at`

	defaultListLimit = 20
	maxListLimit     = 100
)

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction appends a ledger entry using the provided DBExecutor.
// A reference collision does not raise an error inside the transaction: the insert is skipped
// and util.ErrDuplicateEntry is returned, leaving the caller free to retry with a new reference.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transaction_history
                  (user_id, reference, transaction_type, amount, fee, balance_before, balance_after, status, description, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              ON CONFLICT (reference) DO NOTHING
              RETURNING id`

	err := q.QueryRowContext(ctx, query,
		transaction.UserID,
		transaction.Reference,
		transaction.TransactionType,
		transaction.Amount,
		transaction.Fee,
		transaction.BalanceBefore,
		transaction.BalanceAfter,
		transaction.Status,
		transaction.Description,
		transaction.CreatedAt,
	).Scan(&transaction.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsUniqueViolation(err) {
			return fmt.Errorf("reference %s: %w", transaction.Reference, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactions retrieves a filtered, paginated ledger listing, newest first.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) ListTransactions(ctx context.Context, q repository.DBExecutor, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	where, args := buildTransactionFilter(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	transactions := []domain.Transaction{}
	query := fmt.Sprintf(`SELECT %s FROM transaction_history%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2)
	if err := q.SelectContext(ctx, &transactions, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM transaction_history` + where
	if err := q.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return transactions, totalCount, nil
}

// buildTransactionFilter renders the WHERE clause of a listing with positional arguments.
func buildTransactionFilter(filter domain.TransactionFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != 0 {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Type != "" {
		add("transaction_type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("reference ILIKE $%d", "%"+search+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListTransactionsByUserChronological returns a user's entries in the order they were recorded.
func (r *TransactionRepository) ListTransactionsByUserChronological(ctx context.Context, q repository.DBExecutor, userID int64) ([]domain.Transaction, error) {
	transactions := []domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transaction_history WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	if err := q.SelectContext(ctx, &transactions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	return transactions, nil
}

// GetLatestTransaction returns the most recent entry of a user.
func (r *TransactionRepository) GetLatestTransaction(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Transaction, error) {
	var transaction domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transaction_history WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	if err := q.GetContext(ctx, &transaction, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest transaction for user %d: %w", userID, err)
	}
	return &transaction, nil
}
