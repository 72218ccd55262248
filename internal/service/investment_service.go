// internal/service/investment_service.go
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/metrics"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
	"finflow-ledger/pkg/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// expiredBatchSize is how many matured positions one sweep round loads.
	expiredBatchSize = 200
	defaultWorkers   = 4
)

// InvestmentService defines the lifecycle of investment positions.
type InvestmentService interface {
	ListPlans(ctx context.Context) ([]domain.InvestmentPlan, error)
	StartInvestment(ctx context.Context, userID, planID int64, amount decimal.Decimal) (*domain.UserInvestment, error)
	ListInvestments(ctx context.Context, userID int64) ([]domain.UserInvestment, error)
	ListActiveInvestments(ctx context.Context, userID int64) ([]domain.UserInvestment, error)
	GetInvestment(ctx context.Context, userID, investmentID int64) (*domain.UserInvestment, error)
	GetProfit(ctx context.Context, userID, investmentID int64) (*domain.ProfitSnapshot, error)
	CompleteExpired(ctx context.Context, now time.Time) (int, error)
}

type investmentService struct {
	txRunner
	dbExecutor     repository.DBExecutor
	planRepo       repository.PlanRepository
	investmentRepo repository.InvestmentRepository
	account        walletAccount
	ledger         ledgerRecorder
	workers        int
	clock          func() time.Time
	logger         *zap.Logger
}

// NewInvestmentService creates a new instance of InvestmentService. workers bounds how many
// matured positions are completed concurrently.
func NewInvestmentService(
	dbExecutor repository.DBExecutor,
	tx db.TxManager,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	planRepo repository.PlanRepository,
	investmentRepo repository.InvestmentRepository,
	workers int,
	logger *zap.Logger,
) InvestmentService {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &investmentService{
		txRunner:       txRunner{tx: tx},
		dbExecutor:     dbExecutor,
		planRepo:       planRepo,
		investmentRepo: investmentRepo,
		account:        walletAccount{walletRepo: walletRepo},
		ledger:         ledgerRecorder{transactionRepo: transactionRepo, logger: logger},
		workers:        workers,
		clock:          func() time.Time { return time.Now().UTC() },
		logger:         logger,
	}
}

// ListPlans returns every investment plan.
func (s *investmentService) ListPlans(ctx context.Context) ([]domain.InvestmentPlan, error) {
	plans, err := s.planRepo.ListPlans(ctx, s.dbExecutor)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// StartInvestment debits the wallet and opens an active position in one transaction.
// Nothing is written when the amount is outside the plan limits or the balance is short.
func (s *investmentService) StartInvestment(ctx context.Context, userID, planID int64, amount decimal.Decimal) (*domain.UserInvestment, error) {
	if !domain.ValidAmount(amount) {
		return nil, fmt.Errorf("start investment: amount %s must be positive with at most 2 decimal places: %w", amount, util.ErrInvalidInput)
	}

	plan, err := s.planRepo.GetPlanByID(ctx, s.dbExecutor, planID)
	if err != nil {
		return nil, fmt.Errorf("start investment: plan %d: %w", planID, err)
	}
	if !plan.Accepts(amount) {
		return nil, fmt.Errorf("start investment: %s not in [%s, %s]: %w",
			amount, plan.MinAmount, plan.MaxAmount, util.ErrAmountOutOfRange)
	}

	var (
		investment *domain.UserInvestment
		ledger     *domain.Transaction
	)
	err = s.withinTx(ctx, "start investment", func(q repository.DBExecutor) error {
		wallet, err := s.account.lock(ctx, q, userID)
		if err != nil {
			return fmt.Errorf("start investment: %w", err)
		}
		change, err := s.account.debit(ctx, q, wallet, amount)
		if err != nil {
			return fmt.Errorf("start investment: %w", err)
		}

		investment = domain.NewUserInvestment(userID, plan, amount, s.clock())
		if err := s.investmentRepo.CreateInvestment(ctx, q, investment); err != nil {
			return fmt.Errorf("start investment: %w", err)
		}

		ledger = domain.NewTransaction(userID, domain.TransactionTypeTransfer, amount, change.Before, change.After,
			fmt.Sprintf("Investment #%d in %s", investment.ID, plan.Name))
		if err := s.ledger.record(ctx, q, domain.ReferencePrefixInvestment, ledger); err != nil {
			return fmt.Errorf("start investment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordInvestmentStarted()
	s.logger.Info("Investment started",
		zap.Int64("user_id", userID),
		zap.Int64("investment_id", investment.ID),
		zap.String("plan", plan.Name),
		zap.String("amount", amount.String()),
		zap.String("expected_profit", investment.ExpectedProfit.String()),
		zap.Time("end_date", investment.EndDate),
		zap.String("reference", ledger.Reference))
	return investment, nil
}

// ListInvestments lists all of the user's positions, newest first.
func (s *investmentService) ListInvestments(ctx context.Context, userID int64) ([]domain.UserInvestment, error) {
	investments, err := s.investmentRepo.ListInvestmentsByUser(ctx, s.dbExecutor, userID, "")
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	return investments, nil
}

// ListActiveInvestments lists the user's active positions, newest first.
func (s *investmentService) ListActiveInvestments(ctx context.Context, userID int64) ([]domain.UserInvestment, error) {
	investments, err := s.investmentRepo.ListInvestmentsByUser(ctx, s.dbExecutor, userID, domain.InvestmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active investments: %w", err)
	}
	return investments, nil
}

// GetInvestment returns one of the user's positions. Someone else's position is reported as
// util.ErrNotFound.
func (s *investmentService) GetInvestment(ctx context.Context, userID, investmentID int64) (*domain.UserInvestment, error) {
	investment, err := s.investmentRepo.GetInvestmentByID(ctx, s.dbExecutor, investmentID)
	if err != nil {
		return nil, fmt.Errorf("get investment: %w", err)
	}
	if investment.UserID != userID {
		return nil, fmt.Errorf("get investment %d: %w", investmentID, util.ErrNotFound)
	}
	return investment, nil
}

// GetProfit returns the stored profit figures of one of the user's positions.
func (s *investmentService) GetProfit(ctx context.Context, userID, investmentID int64) (*domain.ProfitSnapshot, error) {
	investment, err := s.GetInvestment(ctx, userID, investmentID)
	if err != nil {
		return nil, err
	}
	snapshot := investment.Profit()
	return &snapshot, nil
}

// CompleteExpired completes every active position whose end date is before now and pays it
// out. Each position runs in its own transaction; a failure is logged and does not stop the
// others. It returns how many positions were completed.
func (s *investmentService) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	var (
		total   int
		afterID int64
	)
	for {
		ids, err := s.investmentRepo.ListExpiredInvestmentIDs(ctx, s.dbExecutor, now, afterID, expiredBatchSize)
		if err != nil {
			return total, fmt.Errorf("complete expired: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		total += s.completeBatch(ctx, ids, now)
		// The cursor moves past failed positions too; they are retried on the next sweep.
		afterID = ids[len(ids)-1]
		if len(ids) < expiredBatchSize || ctx.Err() != nil {
			break
		}
	}

	if total > 0 {
		s.logger.Info("Expired investments completed", zap.Int("count", total), zap.Time("as_of", now))
	}
	return total, nil
}

func (s *investmentService) completeBatch(ctx context.Context, ids []int64, now time.Time) int {
	var (
		completed int64
		g         errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			done, err := s.completeInvestment(ctx, id, now)
			if err != nil {
				metrics.RecordMaturitySweepFailure()
				s.logger.Error("Failed to complete investment", zap.Int64("investment_id", id), zap.Error(err))
				return nil
			}
			if done {
				atomic.AddInt64(&completed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(completed)
}

// completeInvestment marks one matured position completed and credits its payout as a
// principal transfer plus a profit entry. A position that is no longer active is skipped,
// so each payout happens exactly once.
func (s *investmentService) completeInvestment(ctx context.Context, investmentID int64, now time.Time) (bool, error) {
	var (
		investment *domain.UserInvestment
		completed  bool
	)
	err := s.withinTx(ctx, "complete investment", func(q repository.DBExecutor) error {
		var err error
		investment, err = s.investmentRepo.GetInvestmentForUpdate(ctx, q, investmentID)
		if err != nil {
			return fmt.Errorf("complete investment: %w", err)
		}
		if !investment.IsExpired(now) {
			return nil
		}

		wallet, err := s.account.lock(ctx, q, investment.UserID)
		if err != nil {
			return fmt.Errorf("complete investment: %w", err)
		}

		change, err := s.account.credit(ctx, q, wallet, investment.Amount)
		if err != nil {
			return fmt.Errorf("complete investment: %w", err)
		}
		principal := domain.NewTransaction(investment.UserID, domain.TransactionTypeTransfer, investment.Amount,
			change.Before, change.After, fmt.Sprintf("Principal returned from investment #%d", investment.ID))
		if err := s.ledger.record(ctx, q, domain.ReferencePrefixInvestment, principal); err != nil {
			return fmt.Errorf("complete investment: %w", err)
		}

		if investment.ExpectedProfit.Sign() > 0 {
			change, err = s.account.credit(ctx, q, wallet, investment.ExpectedProfit)
			if err != nil {
				return fmt.Errorf("complete investment: %w", err)
			}
			profit := domain.NewTransaction(investment.UserID, domain.TransactionTypeProfit, investment.ExpectedProfit,
				change.Before, change.After, fmt.Sprintf("Profit from investment #%d in %s", investment.ID, investment.PlanName))
			if err := s.ledger.record(ctx, q, domain.ReferencePrefixProfit, profit); err != nil {
				return fmt.Errorf("complete investment: %w", err)
			}
		}

		ok, err := s.investmentRepo.MarkInvestmentCompleted(ctx, q, investment.ID, now)
		if err != nil {
			return fmt.Errorf("complete investment: %w", err)
		}
		if !ok {
			return fmt.Errorf("complete investment %d: position changed under lock: %w", investment.ID, util.ErrLedgerInvariant)
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if completed {
		metrics.RecordInvestmentCompleted()
		s.logger.Info("Investment completed",
			zap.Int64("user_id", investment.UserID),
			zap.Int64("investment_id", investment.ID),
			zap.String("total_payout", investment.TotalPayout.String()))
	}
	return completed, nil
}
