// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
	"finflow-ledger/pkg/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletService defines the interface for wallet reads, manual adjustments and reconciliation.
type WalletService interface {
	GetOrCreateWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
	AdjustBalance(ctx context.Context, userID int64, txType domain.TransactionType, amount decimal.Decimal, description string) (*domain.Wallet, *domain.Transaction, error)
	Reconcile(ctx context.Context, userID int64) (*domain.Reconciliation, error)
}

// walletService implements the WalletService interface.
type walletService struct {
	txRunner
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	walletRepo repository.WalletRepository
	txRepo     repository.TransactionRepository
	account    walletAccount
	ledger     ledgerRecorder
	logger     *zap.Logger
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbExecutor repository.DBExecutor,
	tx db.TxManager,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	logger *zap.Logger,
) WalletService {
	return &walletService{
		txRunner:   txRunner{tx: tx},
		dbExecutor: dbExecutor,
		walletRepo: walletRepo,
		txRepo:     transactionRepo,
		account:    walletAccount{walletRepo: walletRepo},
		ledger:     ledgerRecorder{transactionRepo: transactionRepo, logger: logger},
		logger:     logger,
	}
}

// GetOrCreateWallet returns the user's wallet, creating an empty one on first access.
func (s *walletService) GetOrCreateWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if err := s.walletRepo.EnsureWallet(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

// ListTransactions returns ledger entries matching the filter, newest first.
func (s *walletService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, fmt.Errorf("unknown transaction type %q: %w", filter.Type, util.ErrInvalidInput)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown transaction status %q: %w", filter.Status, util.ErrInvalidInput)
	}

	transactions, total, err := s.txRepo.ListTransactions(ctx, s.dbExecutor, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, total, nil
}

// AdjustBalance applies an administrative manual_credit or manual_debit. A debit that the
// balance cannot cover fails with util.ErrInsufficientFunds.
func (s *walletService) AdjustBalance(ctx context.Context, userID int64, txType domain.TransactionType, amount decimal.Decimal, description string) (*domain.Wallet, *domain.Transaction, error) {
	if txType != domain.TransactionTypeManualCredit && txType != domain.TransactionTypeManualDebit {
		return nil, nil, fmt.Errorf("adjust balance: type %q: %w", txType, util.ErrInvalidInput)
	}
	if !domain.ValidAmount(amount) {
		return nil, nil, fmt.Errorf("adjust balance: amount %s must be positive with at most 2 decimal places: %w", amount, util.ErrInvalidInput)
	}
	if description == "" {
		description = "Manual adjustment"
	}

	var (
		wallet *domain.Wallet
		ledger *domain.Transaction
	)
	err := s.withinTx(ctx, "adjust balance", func(q repository.DBExecutor) error {
		var err error
		wallet, err = s.account.lock(ctx, q, userID)
		if err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}

		var change balanceChange
		if txType == domain.TransactionTypeManualCredit {
			change, err = s.account.credit(ctx, q, wallet, amount)
		} else {
			change, err = s.account.debit(ctx, q, wallet, amount)
		}
		if err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}

		ledger = domain.NewTransaction(userID, txType, amount, change.Before, change.After, description)
		return s.ledger.record(ctx, q, domain.ReferencePrefixManual, ledger)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Wallet adjusted",
		zap.Int64("user_id", userID),
		zap.String("transaction_type", string(txType)),
		zap.String("amount", amount.String()),
		zap.String("balance_before", ledger.BalanceBefore.String()),
		zap.String("balance_after", ledger.BalanceAfter.String()),
		zap.String("reference", ledger.Reference))
	return wallet, ledger, nil
}

// Reconcile replays the user's ledger and compares the result to the stored balance.
// The wallet row is locked while the ledger is read so no mutation lands in between.
func (s *walletService) Reconcile(ctx context.Context, userID int64) (*domain.Reconciliation, error) {
	var result *domain.Reconciliation
	err := s.withinTx(ctx, "reconcile", func(q repository.DBExecutor) error {
		wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, q, userID)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		entries, err := s.txRepo.ListTransactionsByUserChronological(ctx, q, userID)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}

		ledgerBalance := domain.Replay(entries)
		result = &domain.Reconciliation{
			UserID:        userID,
			Balance:       wallet.Balance,
			LedgerBalance: ledgerBalance,
			Entries:       len(entries),
			Consistent:    ledgerBalance.Equal(wallet.Balance),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		s.logger.Error("Ledger does not reconcile with wallet balance",
			zap.Int64("user_id", userID),
			zap.String("balance", result.Balance.String()),
			zap.String("ledger_balance", result.LedgerBalance.String()),
			zap.Int("entries", result.Entries))
	}
	return result, nil
}
