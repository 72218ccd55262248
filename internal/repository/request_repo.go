// internal/repository/request_repo.go
package repository

import (
	"context"

	"finflow-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// DepositRepository defines the interface for deposit request operations.
type DepositRepository interface {
	CreateDeposit(ctx context.Context, q DBExecutor, deposit *domain.DepositRequest) error
	// GetDepositForUpdate retrieves a request and locks it so decisions on it are serialized.
	GetDepositForUpdate(ctx context.Context, q DBExecutor, id int64) (*domain.DepositRequest, error)
	UpdateDepositStatus(ctx context.Context, q DBExecutor, id int64, status domain.RequestStatus) error
	ListDepositsByUser(ctx context.Context, q DBExecutor, userID int64) ([]domain.DepositRequest, error)
	SumApprovedDeposits(ctx context.Context, q DBExecutor, userID int64) (decimal.Decimal, error)
}

// WithdrawalRepository defines the interface for withdrawal request operations.
type WithdrawalRepository interface {
	CreateWithdrawal(ctx context.Context, q DBExecutor, withdrawal *domain.WithdrawalRequest) error
	// GetWithdrawalForUpdate retrieves a request and locks it so decisions on it are serialized.
	GetWithdrawalForUpdate(ctx context.Context, q DBExecutor, id int64) (*domain.WithdrawalRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, q DBExecutor, id int64, status domain.RequestStatus) error
	ListWithdrawalsByUser(ctx context.Context, q DBExecutor, userID int64) ([]domain.WithdrawalRequest, error)
	SumApprovedWithdrawals(ctx context.Context, q DBExecutor, userID int64) (decimal.Decimal, error)
}
