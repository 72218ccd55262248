// internal/service/overview_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
)

// OverviewService builds read-only summaries of a user's money. It never mutates state.
type OverviewService interface {
	Overview(ctx context.Context, userID int64) (*domain.Overview, error)
}

type overviewService struct {
	dbExecutor     repository.DBExecutor
	walletRepo     repository.WalletRepository
	txRepo         repository.TransactionRepository
	depositRepo    repository.DepositRepository
	withdrawalRepo repository.WithdrawalRepository
	investmentRepo repository.InvestmentRepository
}

// NewOverviewService creates a new instance of OverviewService.
func NewOverviewService(
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	depositRepo repository.DepositRepository,
	withdrawalRepo repository.WithdrawalRepository,
	investmentRepo repository.InvestmentRepository,
) OverviewService {
	return &overviewService{
		dbExecutor:     dbExecutor,
		walletRepo:     walletRepo,
		txRepo:         transactionRepo,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		investmentRepo: investmentRepo,
	}
}

// Overview reports the balance, approved deposit and withdrawal totals, realised profit,
// principal in active positions and the most recent ledger entry.
func (s *overviewService) Overview(ctx context.Context, userID int64) (*domain.Overview, error) {
	if err := s.walletRepo.EnsureWallet(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	overview := &domain.Overview{UserID: userID, Balance: wallet.Balance}

	if overview.TotalDeposits, err = s.depositRepo.SumApprovedDeposits(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("overview: deposits: %w", err)
	}
	if overview.TotalWithdrawals, err = s.withdrawalRepo.SumApprovedWithdrawals(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("overview: withdrawals: %w", err)
	}
	if overview.TotalProfits, err = s.investmentRepo.SumCompletedProfit(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("overview: profits: %w", err)
	}
	if overview.TotalInvested, overview.ActiveInvestments, err = s.investmentRepo.SumActivePrincipal(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("overview: investments: %w", err)
	}

	last, err := s.txRepo.GetLatestTransaction(ctx, s.dbExecutor, userID)
	switch {
	case err == nil:
		overview.LastTransaction = last
	case errors.Is(err, util.ErrNotFound):
	default:
		return nil, fmt.Errorf("overview: last transaction: %w", err)
	}

	return overview, nil
}
