// internal/domain/investment.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InvestmentPlan is immutable reference data describing return terms.
type InvestmentPlan struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Description      string          `db:"description" json:"description"`
	MinAmount        decimal.Decimal `db:"min_amount" json:"min_amount"`
	MaxAmount        decimal.Decimal `db:"max_amount" json:"max_amount"`
	DailyROI         decimal.Decimal `db:"daily_roi" json:"daily_roi"` // Percentage per day
	DurationDays     int             `db:"duration_days" json:"duration_days"`
	TotalReturn      decimal.Decimal `db:"total_return" json:"total_return"` // Informational, ROI + capital
	CompoundInterest bool            `db:"compound_interest" json:"compound_interest"`
}

// Validate checks the plan's internal consistency.
func (p *InvestmentPlan) Validate() error {
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	if p.MinAmount.Sign() <= 0 {
		return fmt.Errorf("plan %q: min_amount must be positive", p.Name)
	}
	if p.MinAmount.GreaterThan(p.MaxAmount) {
		return fmt.Errorf("plan %q: min_amount %s exceeds max_amount %s", p.Name, p.MinAmount, p.MaxAmount)
	}
	if p.DailyROI.IsNegative() {
		return fmt.Errorf("plan %q: daily_roi must not be negative", p.Name)
	}
	if p.DurationDays <= 0 {
		return fmt.Errorf("plan %q: duration_days must be positive", p.Name)
	}
	return nil
}

// Accepts reports whether amount lies within [MinAmount, MaxAmount].
func (p *InvestmentPlan) Accepts(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}

// CalculateProfit returns the profit a plan yields on amount over its full duration,
// rounded to cents.
//
// Simple interest: amount * daily_roi/100 * duration_days.
// Compound interest: the daily rate is applied once per day, day by day.
func CalculateProfit(plan *InvestmentPlan, amount decimal.Decimal) decimal.Decimal {
	rate := plan.DailyROI.Div(hundred)

	if !plan.CompoundInterest {
		return amount.Mul(rate).Mul(decimal.NewFromInt(int64(plan.DurationDays))).Round(2)
	}

	growth := decimal.NewFromInt(1).Add(rate)
	balance := amount
	for day := 0; day < plan.DurationDays; day++ {
		balance = balance.Mul(growth)
	}
	return balance.Sub(amount).Round(2)
}

// InvestmentStatus is the lifecycle state of a position.
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// UserInvestment is a position a user holds in a plan.
// TotalPayout always equals Amount + ExpectedProfit.
type UserInvestment struct {
	ID             int64            `db:"id" json:"id"`
	UserID         int64            `db:"user_id" json:"user_id"`
	PlanID         int64            `db:"plan_id" json:"plan_id"`
	PlanName       string           `db:"plan_name" json:"plan_name"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	EndDate        time.Time        `db:"end_date" json:"end_date"`
	Status         InvestmentStatus `db:"status" json:"status"`
	ExpectedProfit decimal.Decimal  `db:"expected_profit" json:"expected_profit"`
	TotalPayout    decimal.Decimal  `db:"total_payout" json:"total_payout"`
	CompletedAt    *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// NewUserInvestment opens an active position starting at now and ending after the plan duration.
func NewUserInvestment(userID int64, plan *InvestmentPlan, amount decimal.Decimal, now time.Time) *UserInvestment {
	profit := CalculateProfit(plan, amount)
	return &UserInvestment{
		UserID:         userID,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		Amount:         amount,
		StartDate:      now,
		EndDate:        now.AddDate(0, 0, plan.DurationDays),
		Status:         InvestmentStatusActive,
		ExpectedProfit: profit,
		TotalPayout:    amount.Add(profit),
	}
}

// IsExpired reports whether an active position's end date has passed.
func (i *UserInvestment) IsExpired(now time.Time) bool {
	return i.Status == InvestmentStatusActive && i.EndDate.Before(now)
}

// ProfitSnapshot is the read-only profit view of a position.
type ProfitSnapshot struct {
	ID             int64            `json:"id"`
	PlanName       string           `json:"plan_name"`
	Amount         decimal.Decimal  `json:"amount"`
	ExpectedProfit decimal.Decimal  `json:"expected_profit"`
	Status         InvestmentStatus `json:"status"`
	TotalPayout    decimal.Decimal  `json:"total_payout"`
}

// Profit returns the stored profit figures without recomputing them.
func (i *UserInvestment) Profit() ProfitSnapshot {
	return ProfitSnapshot{
		ID:             i.ID,
		PlanName:       i.PlanName,
		Amount:         i.Amount,
		ExpectedProfit: i.ExpectedProfit,
		Status:         i.Status,
		TotalPayout:    i.TotalPayout,
	}
}
