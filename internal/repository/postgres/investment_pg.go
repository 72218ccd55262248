// internal/repository/postgres/investment_pg.go
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
	planColumns = `id, name, description, min_amount, max_amount, daily_roi, duration_days, total_return, compound_interest`

	investmentSelect = `SELECT ui.id, ui.user_id, ui.plan_id, p.name AS plan_name, ui.amount, ui.start_date, ui.end_date,
                  ui.status, ui.expected_profit, ui.total_payout, ui.completed_at
              FROM user_investments ui
              JOIN investment_plans p ON p.id = ui.plan_id`
)

// PlanRepository implements repository.PlanRepository for PostgreSQL.
type PlanRepository struct{}

var _ repository.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{}
}

// ListPlans returns every plan ordered by minimum amount.
func (r *PlanRepository) ListPlans(ctx context.Context, q repository.DBExecutor) ([]domain.InvestmentPlan, error) {
	plans := []domain.InvestmentPlan{}
	query := `SELECT ` + planColumns + ` FROM investment_plans ORDER BY min_amount ASC, id ASC`
	if err := q.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("failed to list investment plans: %w", err)
	}
	return plans, nil
}

// GetPlanByID retrieves a plan by its ID.
func (r *PlanRepository) GetPlanByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.InvestmentPlan, error) {
	var plan domain.InvestmentPlan
	query := `SELECT ` + planColumns + ` FROM investment_plans WHERE id = $1`
	if err := q.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get investment plan %d: %w", id, err)
	}
	return &plan, nil
}

// UpsertPlan inserts a plan or refreshes the terms of an existing plan with the same name.
// Positions already opened keep the profit they were quoted.
func (r *PlanRepository) UpsertPlan(ctx context.Context, q repository.DBExecutor, plan *domain.InvestmentPlan) error {
	query := `INSERT INTO investment_plans (name, description, min_amount, max_amount, daily_roi, duration_days, total_return, compound_interest)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              ON CONFLICT (name) DO UPDATE SET
                  description = EXCLUDED.description,
                  min_amount = EXCLUDED.min_amount,
                  max_amount = EXCLUDED.max_amount,
                  daily_roi = EXCLUDED.daily_roi,
                  duration_days = EXCLUDED.duration_days,
                  total_return = EXCLUDED.total_return,
                  compound_interest = EXCLUDED.compound_interest
              RETURNING id`
	err := q.QueryRowContext(ctx, query,
		plan.Name, plan.Description, plan.MinAmount, plan.MaxAmount,
		plan.DailyROI, plan.DurationDays, plan.TotalReturn, plan.CompoundInterest,
	).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert investment plan %q: %w", plan.Name, err)
	}
	return nil
}

// InvestmentRepository implements repository.InvestmentRepository for PostgreSQL.
type InvestmentRepository struct{}

var _ repository.InvestmentRepository = (*InvestmentRepository)(nil)

// NewInvestmentRepository creates a new InvestmentRepository.
func NewInvestmentRepository() *InvestmentRepository {
	return &InvestmentRepository{}
}

// CreateInvestment inserts a new position.
func (r *InvestmentRepository) CreateInvestment(ctx context.Context, q repository.DBExecutor, investment *domain.UserInvestment) error {
	query := `INSERT INTO user_investments (user_id, plan_id, amount, start_date, end_date, status, expected_profit, total_payout)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		investment.UserID, investment.PlanID, investment.Amount, investment.StartDate, investment.EndDate,
		investment.Status, investment.ExpectedProfit, investment.TotalPayout,
	).Scan(&investment.ID)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

// GetInvestmentByID retrieves a position with its plan name.
func (r *InvestmentRepository) GetInvestmentByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.UserInvestment, error) {
	return r.getInvestment(ctx, q, investmentSelect+` WHERE ui.id = $1`, id)
}

// GetInvestmentForUpdate retrieves a position and locks its row. The plan row is not locked.
func (r *InvestmentRepository) GetInvestmentForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.UserInvestment, error) {
	return r.getInvestment(ctx, q, investmentSelect+` WHERE ui.id = $1 FOR UPDATE OF ui`, id)
}

func (r *InvestmentRepository) getInvestment(ctx context.Context, q repository.DBExecutor, query string, id int64) (*domain.UserInvestment, error) {
	var investment domain.UserInvestment
	if err := q.GetContext(ctx, &investment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}
	return &investment, nil
}

// ListInvestmentsByUser lists a user's positions, newest first, optionally by status.
func (r *InvestmentRepository) ListInvestmentsByUser(ctx context.Context, q repository.DBExecutor, userID int64, status domain.InvestmentStatus) ([]domain.UserInvestment, error) {
	investments := []domain.UserInvestment{}
	var err error
	if status == "" {
		query := investmentSelect + ` WHERE ui.user_id = $1 ORDER BY ui.start_date DESC, ui.id DESC`
		err = q.SelectContext(ctx, &investments, query, userID)
	} else {
		query := investmentSelect + ` WHERE ui.user_id = $1 AND ui.status = $2 ORDER BY ui.start_date DESC, ui.id DESC`
		err = q.SelectContext(ctx, &investments, query, userID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list investments for user %d: %w", userID, err)
	}
	return investments, nil
}

// ListExpiredInvestmentIDs returns up to limit active positions whose end date has passed.
// Pages are keyed on id so a caller can move past positions it failed to complete.
func (r *InvestmentRepository) ListExpiredInvestmentIDs(ctx context.Context, q repository.DBExecutor, now time.Time, afterID int64, limit int) ([]int64, error) {
	ids := []int64{}
	query := `SELECT id FROM user_investments WHERE status = $1 AND end_date < $2 AND id > $3 ORDER BY id ASC LIMIT $4`
	if err := q.SelectContext(ctx, &ids, query, domain.InvestmentStatusActive, now, afterID, limit); err != nil {
		return nil, fmt.Errorf("failed to list expired investments: %w", err)
	}
	return ids, nil
}

// MarkInvestmentCompleted flips an active position to completed. The status guard in the
// WHERE clause makes a second completion a no-op.
func (r *InvestmentRepository) MarkInvestmentCompleted(ctx context.Context, q repository.DBExecutor, id int64, completedAt time.Time) (bool, error) {
	query := `UPDATE user_investments SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`
	result, err := q.ExecContext(ctx, query, domain.InvestmentStatusCompleted, completedAt, id, domain.InvestmentStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to complete investment %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after completing investment %d: %w", id, err)
	}
	return rowsAffected == 1, nil
}

// SumCompletedProfit totals the profit of a user's completed positions.
func (r *InvestmentRepository) SumCompletedProfit(ctx context.Context, q repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(expected_profit), 0) FROM user_investments WHERE user_id = $1 AND status = $2`
	return sumAmount(ctx, q, query, userID, domain.InvestmentStatusCompleted)
}

type activePrincipal struct {
	Total decimal.Decimal `db:"total"`
	Count int             `db:"count"`
}

// SumActivePrincipal returns the principal held in a user's active positions and their count.
func (r *InvestmentRepository) SumActivePrincipal(ctx context.Context, q repository.DBExecutor, userID int64) (decimal.Decimal, int, error) {
	var row activePrincipal
	query := `SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count FROM user_investments WHERE user_id = $1 AND status = $2`
	if err := q.GetContext(ctx, &row, query, userID, domain.InvestmentStatusActive); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum active investments for user %d: %w", userID, err)
	}
	return row.Total, row.Count, nil
}
