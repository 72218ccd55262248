// internal/service/request_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/metrics"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
	"finflow-ledger/pkg/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	requestKindDeposit    = "deposit"
	requestKindWithdrawal = "withdrawal"

	outcomeNoop         = "noop"
	outcomeAutoRejected = "auto_rejected"
)

// RequestService defines the lifecycle of deposit and withdrawal requests.
// pending is the only non-terminal state. Repeating a terminal decision is a no-op; asking for
// the opposite one fails with util.ErrRequestFinalized.
type RequestService interface {
	CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, proof string) (*domain.DepositRequest, error)
	ApproveDeposit(ctx context.Context, requestID int64) (*domain.DepositRequest, error)
	RejectDeposit(ctx context.Context, requestID int64) (*domain.DepositRequest, error)
	DecideDeposit(ctx context.Context, requestID int64, decision string) (*domain.DepositRequest, error)
	ListDeposits(ctx context.Context, userID int64) ([]domain.DepositRequest, error)

	CreateWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, walletAddress string) (*domain.WithdrawalRequest, error)
	ApproveWithdrawal(ctx context.Context, requestID int64) (*domain.WithdrawalRequest, error)
	RejectWithdrawal(ctx context.Context, requestID int64) (*domain.WithdrawalRequest, error)
	DecideWithdrawal(ctx context.Context, requestID int64, decision string) (*domain.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, userID int64) ([]domain.WithdrawalRequest, error)
}

type requestService struct {
	txRunner
	dbExecutor     repository.DBExecutor
	walletRepo     repository.WalletRepository
	depositRepo    repository.DepositRepository
	withdrawalRepo repository.WithdrawalRepository
	account        walletAccount
	ledger         ledgerRecorder
	minDeposit     decimal.Decimal
	logger         *zap.Logger
}

// NewRequestService creates a new instance of RequestService. Deposits below minDeposit are
// refused at creation.
func NewRequestService(
	dbExecutor repository.DBExecutor,
	tx db.TxManager,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	depositRepo repository.DepositRepository,
	withdrawalRepo repository.WithdrawalRepository,
	minDeposit decimal.Decimal,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		txRunner:       txRunner{tx: tx},
		dbExecutor:     dbExecutor,
		walletRepo:     walletRepo,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		account:        walletAccount{walletRepo: walletRepo},
		ledger:         ledgerRecorder{transactionRepo: transactionRepo, logger: logger},
		minDeposit:     minDeposit,
		logger:         logger,
	}
}

// CreateDeposit files a pending deposit request. The wallet is not touched until approval.
func (s *requestService) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, proof string) (*domain.DepositRequest, error) {
	if !domain.ValidAmount(amount) {
		return nil, fmt.Errorf("create deposit: amount %s must be positive with at most 2 decimal places: %w", amount, util.ErrInvalidInput)
	}
	if amount.LessThan(s.minDeposit) {
		return nil, fmt.Errorf("create deposit: minimum is %s: %w", s.minDeposit, util.ErrAmountBelowMinimum)
	}

	deposit := domain.NewDepositRequest(userID, amount, proof)
	if err := s.depositRepo.CreateDeposit(ctx, s.dbExecutor, deposit); err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	s.logger.Info("Deposit request created",
		zap.Int64("user_id", userID),
		zap.Int64("request_id", deposit.ID),
		zap.String("amount", amount.String()))
	return deposit, nil
}

// ApproveDeposit credits the wallet and records a deposit entry in one transaction.
// The request row lock makes concurrent approvals credit exactly once.
func (s *requestService) ApproveDeposit(ctx context.Context, requestID int64) (*domain.DepositRequest, error) {
	var (
		deposit *domain.DepositRequest
		outcome string
		ledger  *domain.Transaction
	)
	err := s.withinTx(ctx, "approve deposit", func(q repository.DBExecutor) error {
		var err error
		deposit, err = s.depositRepo.GetDepositForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("approve deposit: %w", err)
		}
		switch deposit.Status {
		case domain.RequestStatusApproved:
			outcome = outcomeNoop
			return nil
		case domain.RequestStatusRejected:
			return fmt.Errorf("approve deposit %d: %w", requestID, util.ErrRequestFinalized)
		}

		wallet, err := s.account.lock(ctx, q, deposit.UserID)
		if err != nil {
			return fmt.Errorf("approve deposit: %w", err)
		}
		change, err := s.account.credit(ctx, q, wallet, deposit.Amount)
		if err != nil {
			return fmt.Errorf("approve deposit: %w", err)
		}

		ledger = domain.NewTransaction(deposit.UserID, domain.TransactionTypeDeposit, deposit.Amount,
			change.Before, change.After, fmt.Sprintf("Deposit request #%d approved", deposit.ID))
		if err := s.ledger.record(ctx, q, domain.ReferencePrefixDeposit, ledger); err != nil {
			return fmt.Errorf("approve deposit: %w", err)
		}

		if err := s.depositRepo.UpdateDepositStatus(ctx, q, deposit.ID, domain.RequestStatusApproved); err != nil {
			return fmt.Errorf("approve deposit: %w", err)
		}
		deposit.Status = domain.RequestStatusApproved
		outcome = string(domain.RequestStatusApproved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestDecision(requestKindDeposit, outcome)
	if outcome == outcomeNoop {
		s.logger.Info("Deposit request already approved", zap.Int64("request_id", requestID))
		return deposit, nil
	}
	s.logger.Info("Deposit request approved",
		zap.Int64("user_id", deposit.UserID),
		zap.Int64("request_id", deposit.ID),
		zap.String("amount", deposit.Amount.String()),
		zap.String("reference", ledger.Reference),
		zap.String("balance_before", ledger.BalanceBefore.String()),
		zap.String("balance_after", ledger.BalanceAfter.String()))
	return deposit, nil
}

// RejectDeposit closes a pending deposit request without touching the wallet.
func (s *requestService) RejectDeposit(ctx context.Context, requestID int64) (*domain.DepositRequest, error) {
	var (
		deposit *domain.DepositRequest
		outcome string
	)
	err := s.withinTx(ctx, "reject deposit", func(q repository.DBExecutor) error {
		var err error
		deposit, err = s.depositRepo.GetDepositForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("reject deposit: %w", err)
		}
		switch deposit.Status {
		case domain.RequestStatusRejected:
			outcome = outcomeNoop
			return nil
		case domain.RequestStatusApproved:
			return fmt.Errorf("reject deposit %d: %w", requestID, util.ErrRequestFinalized)
		}

		if err := s.depositRepo.UpdateDepositStatus(ctx, q, deposit.ID, domain.RequestStatusRejected); err != nil {
			return fmt.Errorf("reject deposit: %w", err)
		}
		deposit.Status = domain.RequestStatusRejected
		outcome = string(domain.RequestStatusRejected)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestDecision(requestKindDeposit, outcome)
	s.logger.Info("Deposit request rejected",
		zap.Int64("user_id", deposit.UserID),
		zap.Int64("request_id", deposit.ID),
		zap.Bool("noop", outcome == outcomeNoop))
	return deposit, nil
}

// DecideDeposit applies an admin decision given as "approved" or "rejected".
func (s *requestService) DecideDeposit(ctx context.Context, requestID int64, decision string) (*domain.DepositRequest, error) {
	status, ok := domain.ParseDecision(decision)
	if !ok {
		return nil, fmt.Errorf("decide deposit %d: %q: %w", requestID, decision, util.ErrInvalidDecision)
	}
	if status == domain.RequestStatusApproved {
		return s.ApproveDeposit(ctx, requestID)
	}
	return s.RejectDeposit(ctx, requestID)
}

// ListDeposits lists the user's deposit requests, newest first.
func (s *requestService) ListDeposits(ctx context.Context, userID int64) ([]domain.DepositRequest, error) {
	deposits, err := s.depositRepo.ListDepositsByUser(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return deposits, nil
}

// CreateWithdrawal files a pending withdrawal request. The balance check here is advisory:
// nothing is reserved, and approval checks again.
func (s *requestService) CreateWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, walletAddress string) (*domain.WithdrawalRequest, error) {
	if !domain.ValidAmount(amount) {
		return nil, fmt.Errorf("create withdrawal: amount %s must be positive with at most 2 decimal places: %w", amount, util.ErrInvalidInput)
	}
	if walletAddress == "" {
		return nil, fmt.Errorf("create withdrawal: wallet address is required: %w", util.ErrInvalidInput)
	}

	if err := s.walletRepo.EnsureWallet(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	if !wallet.CanCover(amount) {
		return nil, fmt.Errorf("create withdrawal: %w", util.ErrInsufficientFunds)
	}

	withdrawal := domain.NewWithdrawalRequest(userID, amount, walletAddress)
	if err := s.withdrawalRepo.CreateWithdrawal(ctx, s.dbExecutor, withdrawal); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	s.logger.Info("Withdrawal request created",
		zap.Int64("user_id", userID),
		zap.Int64("request_id", withdrawal.ID),
		zap.String("amount", amount.String()))
	return withdrawal, nil
}

// ApproveWithdrawal re-checks the balance under the wallet lock. If it still covers the amount
// the wallet is debited and a withdrawal entry recorded; otherwise the request is rejected
// and no error is returned.
func (s *requestService) ApproveWithdrawal(ctx context.Context, requestID int64) (*domain.WithdrawalRequest, error) {
	var (
		withdrawal *domain.WithdrawalRequest
		outcome    string
		ledger     *domain.Transaction
		balance    decimal.Decimal
	)
	err := s.withinTx(ctx, "approve withdrawal", func(q repository.DBExecutor) error {
		var err error
		withdrawal, err = s.withdrawalRepo.GetWithdrawalForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		switch withdrawal.Status {
		case domain.RequestStatusApproved:
			outcome = outcomeNoop
			return nil
		case domain.RequestStatusRejected:
			return fmt.Errorf("approve withdrawal %d: %w", requestID, util.ErrRequestFinalized)
		}

		wallet, err := s.account.lock(ctx, q, withdrawal.UserID)
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		balance = wallet.Balance

		change, err := s.account.debit(ctx, q, wallet, withdrawal.Amount)
		if errors.Is(err, util.ErrInsufficientFunds) {
			if err := s.withdrawalRepo.UpdateWithdrawalStatus(ctx, q, withdrawal.ID, domain.RequestStatusRejected); err != nil {
				return fmt.Errorf("approve withdrawal: %w", err)
			}
			withdrawal.Status = domain.RequestStatusRejected
			outcome = outcomeAutoRejected
			return nil
		}
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}

		ledger = domain.NewTransaction(withdrawal.UserID, domain.TransactionTypeWithdrawal, withdrawal.Amount,
			change.Before, change.After, fmt.Sprintf("Withdrawal request #%d to %s", withdrawal.ID, withdrawal.WalletAddress))
		if err := s.ledger.record(ctx, q, domain.ReferencePrefixWithdrawal, ledger); err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}

		if err := s.withdrawalRepo.UpdateWithdrawalStatus(ctx, q, withdrawal.ID, domain.RequestStatusApproved); err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		withdrawal.Status = domain.RequestStatusApproved
		outcome = string(domain.RequestStatusApproved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestDecision(requestKindWithdrawal, outcome)
	switch outcome {
	case outcomeNoop:
		s.logger.Info("Withdrawal request already approved", zap.Int64("request_id", requestID))
	case outcomeAutoRejected:
		s.logger.Warn("Withdrawal approval degraded to rejection: insufficient funds",
			zap.Int64("user_id", withdrawal.UserID),
			zap.Int64("request_id", withdrawal.ID),
			zap.String("amount", withdrawal.Amount.String()),
			zap.String("balance", balance.String()))
	default:
		s.logger.Info("Withdrawal request approved",
			zap.Int64("user_id", withdrawal.UserID),
			zap.Int64("request_id", withdrawal.ID),
			zap.String("amount", withdrawal.Amount.String()),
			zap.String("reference", ledger.Reference),
			zap.String("balance_before", ledger.BalanceBefore.String()),
			zap.String("balance_after", ledger.BalanceAfter.String()))
	}
	return withdrawal, nil
}

// RejectWithdrawal closes a pending withdrawal request without touching the wallet.
func (s *requestService) RejectWithdrawal(ctx context.Context, requestID int64) (*domain.WithdrawalRequest, error) {
	var (
		withdrawal *domain.WithdrawalRequest
		outcome    string
	)
	err := s.withinTx(ctx, "reject withdrawal", func(q repository.DBExecutor) error {
		var err error
		withdrawal, err = s.withdrawalRepo.GetWithdrawalForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		switch withdrawal.Status {
		case domain.RequestStatusRejected:
			outcome = outcomeNoop
			return nil
		case domain.RequestStatusApproved:
			return fmt.Errorf("reject withdrawal %d: %w", requestID, util.ErrRequestFinalized)
		}

		if err := s.withdrawalRepo.UpdateWithdrawalStatus(ctx, q, withdrawal.ID, domain.RequestStatusRejected); err != nil {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		withdrawal.Status = domain.RequestStatusRejected
		outcome = string(domain.RequestStatusRejected)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRequestDecision(requestKindWithdrawal, outcome)
	s.logger.Info("Withdrawal request rejected",
		zap.Int64("user_id", withdrawal.UserID),
		zap.Int64("request_id", withdrawal.ID),
		zap.Bool("noop", outcome == outcomeNoop))
	return withdrawal, nil
}

// DecideWithdrawal applies an admin decision given as "approved" or "rejected".
func (s *requestService) DecideWithdrawal(ctx context.Context, requestID int64, decision string) (*domain.WithdrawalRequest, error) {
	status, ok := domain.ParseDecision(decision)
	if !ok {
		return nil, fmt.Errorf("decide withdrawal %d: %q: %w", requestID, decision, util.ErrInvalidDecision)
	}
	if status == domain.RequestStatusApproved {
		return s.ApproveWithdrawal(ctx, requestID)
	}
	return s.RejectWithdrawal(ctx, requestID)
}

// ListWithdrawals lists the user's withdrawal requests, newest first.
func (s *requestService) ListWithdrawals(ctx context.Context, userID int64) ([]domain.WithdrawalRequest, error) {
	withdrawals, err := s.withdrawalRepo.ListWithdrawalsByUser(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return withdrawals, nil
}
