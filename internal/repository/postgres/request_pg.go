// internal/repository/postgres/request_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"

	"github.com/shopspring/decimal"
)

const (
	depositColumns    = `id, user_id, amount, proof, status, created_at, updated_at`
	withdrawalColumns = `id, user_id, amount, wallet_address, status, created_at, updated_at`
)

// DepositRepository implements repository.DepositRepository for PostgreSQL.
type DepositRepository struct{}

var _ repository.DepositRepository = (*DepositRepository)(nil)

// NewDepositRepository creates a new DepositRepository.
func NewDepositRepository() *DepositRepository {
	return &DepositRepository{}
}

// CreateDeposit inserts a pending deposit request.
func (r *DepositRepository) CreateDeposit(ctx context.Context, q repository.DBExecutor, deposit *domain.DepositRequest) error {
	query := `INSERT INTO deposit_requests (user_id, amount, proof, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		deposit.UserID, deposit.Amount, deposit.Proof, deposit.Status, deposit.CreatedAt, deposit.UpdatedAt,
	).Scan(&deposit.ID)
	if err != nil {
		return fmt.Errorf("failed to create deposit request: %w", err)
	}
	return nil
}

// GetDepositForUpdate retrieves a deposit request and locks it.
func (r *DepositRepository) GetDepositForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.DepositRequest, error) {
	var deposit domain.DepositRequest
	query := `SELECT ` + depositColumns + ` FROM deposit_requests WHERE id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &deposit, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deposit request %d: %w", id, err)
	}
	return &deposit, nil
}

// UpdateDepositStatus sets the status of a deposit request.
func (r *DepositRepository) UpdateDepositStatus(ctx context.Context, q repository.DBExecutor, id int64, status domain.RequestStatus) error {
	query := `UPDATE deposit_requests SET status = $1, updated_at = $2 WHERE id = $3`
	return execUpdate(ctx, q, "deposit request", id, query, status, time.Now().UTC(), id)
}

// ListDepositsByUser lists a user's deposit requests, newest first.
func (r *DepositRepository) ListDepositsByUser(ctx context.Context, q repository.DBExecutor, userID int64) ([]domain.DepositRequest, error) {
	deposits := []domain.DepositRequest{}
	query := `SELECT ` + depositColumns + ` FROM deposit_requests WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	if err := q.SelectContext(ctx, &deposits, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list deposit requests for user %d: %w", userID, err)
	}
	return deposits, nil
}

// SumApprovedDeposits totals the approved deposit requests of a user.
func (r *DepositRepository) SumApprovedDeposits(ctx context.Context, q repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM deposit_requests WHERE user_id = $1 AND status = $2`
	return sumAmount(ctx, q, query, userID, domain.RequestStatusApproved)
}

// WithdrawalRepository implements repository.WithdrawalRepository for PostgreSQL.
type WithdrawalRepository struct{}

var _ repository.WithdrawalRepository = (*WithdrawalRepository)(nil)

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository() *WithdrawalRepository {
	return &WithdrawalRepository{}
}

// CreateWithdrawal inserts a pending withdrawal request.
func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, q repository.DBExecutor, withdrawal *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (user_id, amount, wallet_address, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		withdrawal.UserID, withdrawal.Amount, withdrawal.WalletAddress, withdrawal.Status, withdrawal.CreatedAt, withdrawal.UpdatedAt,
	).Scan(&withdrawal.ID)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

// GetWithdrawalForUpdate retrieves a withdrawal request and locks it.
func (r *WithdrawalRepository) GetWithdrawalForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.WithdrawalRequest, error) {
	var withdrawal domain.WithdrawalRequest
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &withdrawal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request %d: %w", id, err)
	}
	return &withdrawal, nil
}

// UpdateWithdrawalStatus sets the status of a withdrawal request.
func (r *WithdrawalRepository) UpdateWithdrawalStatus(ctx context.Context, q repository.DBExecutor, id int64, status domain.RequestStatus) error {
	query := `UPDATE withdrawal_requests SET status = $1, updated_at = $2 WHERE id = $3`
	return execUpdate(ctx, q, "withdrawal request", id, query, status, time.Now().UTC(), id)
}

// ListWithdrawalsByUser lists a user's withdrawal requests, newest first.
func (r *WithdrawalRepository) ListWithdrawalsByUser(ctx context.Context, q repository.DBExecutor, userID int64) ([]domain.WithdrawalRequest, error) {
	withdrawals := []domain.WithdrawalRequest{}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	if err := q.SelectContext(ctx, &withdrawals, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests for user %d: %w", userID, err)
	}
	return withdrawals, nil
}

// SumApprovedWithdrawals totals the approved withdrawal requests of a user.
func (r *WithdrawalRepository) SumApprovedWithdrawals(ctx context.Context, q repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests WHERE user_id = $1 AND status = $2`
	return sumAmount(ctx, q, query, userID, domain.RequestStatusApproved)
}

// execUpdate runs an UPDATE expected to touch exactly one row.
func execUpdate(ctx context.Context, q repository.DBExecutor, entity string, id int64, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", entity, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating %s %d: %w", entity, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, util.ErrNotFound)
	}
	return nil
}

// sumAmount runs an aggregate query returning a single decimal.
func sumAmount(ctx context.Context, q repository.DBExecutor, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.GetContext(ctx, &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum amounts: %w", err)
	}
	return total, nil
}
