// internal/repository/investment_repo.go
package repository

import (
	"context"
	"time"

	"finflow-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// PlanRepository defines the interface for investment plan reference data.
type PlanRepository interface {
	ListPlans(ctx context.Context, q DBExecutor) ([]domain.InvestmentPlan, error)
	GetPlanByID(ctx context.Context, q DBExecutor, id int64) (*domain.InvestmentPlan, error)
	// UpsertPlan inserts a plan or refreshes the terms of the plan with the same name.
	UpsertPlan(ctx context.Context, q DBExecutor, plan *domain.InvestmentPlan) error
}

// InvestmentRepository defines the interface for investment position operations.
type InvestmentRepository interface {
	CreateInvestment(ctx context.Context, q DBExecutor, investment *domain.UserInvestment) error
	GetInvestmentByID(ctx context.Context, q DBExecutor, id int64) (*domain.UserInvestment, error)
	// GetInvestmentForUpdate retrieves a position and locks it until the transaction ends.
	GetInvestmentForUpdate(ctx context.Context, q DBExecutor, id int64) (*domain.UserInvestment, error)
	// ListInvestmentsByUser lists a user's positions, newest first. An empty status lists all.
	ListInvestmentsByUser(ctx context.Context, q DBExecutor, userID int64, status domain.InvestmentStatus) ([]domain.UserInvestment, error)
	// ListExpiredInvestmentIDs returns active positions whose end date is before now and whose
	// id is greater than afterID, in ascending id order.
	ListExpiredInvestmentIDs(ctx context.Context, q DBExecutor, now time.Time, afterID int64, limit int) ([]int64, error)
	// MarkInvestmentCompleted moves an active position to completed. It reports false when the
	// position was no longer active.
	MarkInvestmentCompleted(ctx context.Context, q DBExecutor, id int64, completedAt time.Time) (bool, error)
	SumCompletedProfit(ctx context.Context, q DBExecutor, userID int64) (decimal.Decimal, error)
	// SumActivePrincipal returns the principal locked in active positions and their count.
	SumActivePrincipal(ctx context.Context, q DBExecutor, userID int64) (decimal.Decimal, int, error)
}
