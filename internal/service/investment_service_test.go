package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starterPlan(compound bool) domain.InvestmentPlan {
	name := "Simple"
	if compound {
		name = "Compound"
	}
	return domain.InvestmentPlan{
		Name:             name,
		MinAmount:        decimal.NewFromInt(100),
		MaxAmount:        decimal.NewFromInt(5000),
		DailyROI:         decimal.NewFromInt(1),
		DurationDays:     10,
		TotalReturn:      decimal.NewFromInt(110),
		CompoundInterest: compound,
	}
}

func fixClock(env *testEnv, now time.Time) {
	env.investments.(*investmentService).clock = func() time.Time { return now }
}

func TestStartInvestment(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SimpleInterest", func(t *testing.T) {
		env := newTestEnv(t)
		fixClock(env, start)
		plan := env.addPlan(t, starterPlan(false))
		env.fund(t, 1, "1500")

		position, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Equal(t, domain.InvestmentStatusActive, position.Status)
		assert.Equal(t, "100", position.ExpectedProfit.String())
		assert.Equal(t, "1100", position.TotalPayout.String())
		assert.Equal(t, start.AddDate(0, 0, 10), position.EndDate)
		assert.True(t, decimal.NewFromInt(500).Equal(env.store.balanceOf(1)))

		entries := env.store.entriesFor(1)
		last := entries[len(entries)-1]
		assert.Equal(t, domain.TransactionTypeTransfer, last.TransactionType)
		assert.True(t, decimal.NewFromInt(-1000).Equal(last.SignedAmount()))
		assert.Regexp(t, `^INV-`, last.Reference)
		env.requireReconciled(t, 1)
	})

	t.Run("CompoundInterest", func(t *testing.T) {
		env := newTestEnv(t)
		plan := env.addPlan(t, starterPlan(true))
		env.fund(t, 1, "1000")

		position, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Equal(t, "104.62", position.ExpectedProfit.StringFixed(2))
		assert.Equal(t, "1104.62", position.TotalPayout.StringFixed(2))
		assert.True(t, env.store.balanceOf(1).IsZero())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		env := newTestEnv(t)
		plan := env.addPlan(t, starterPlan(false))
		env.fund(t, 1, "10000")

		for _, amount := range []string{"99.99", "5000.01"} {
			_, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.RequireFromString(amount))
			assert.True(t, errors.Is(err, util.ErrAmountOutOfRange), amount)
		}
		positions, err := env.investments.ListInvestments(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, positions)
		assert.True(t, decimal.NewFromInt(10000).Equal(env.store.balanceOf(1)))
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		env := newTestEnv(t)
		plan := env.addPlan(t, starterPlan(false))
		env.fund(t, 1, "150")

		_, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(200))
		assert.True(t, errors.Is(err, util.ErrInsufficientFunds))
		assert.True(t, decimal.NewFromInt(150).Equal(env.store.balanceOf(1)))
		positions, err := env.investments.ListInvestments(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, positions)
	})

	t.Run("UnknownPlan", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.investments.StartInvestment(ctx, 1, 999, decimal.NewFromInt(200))
		assert.True(t, errors.Is(err, util.ErrNotFound))
	})
}

func TestGetInvestment_Ownership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "1000")

	position, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(500))
	require.NoError(t, err)

	profit, err := env.investments.GetProfit(ctx, 1, position.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", profit.ExpectedProfit.String())
	assert.Equal(t, domain.InvestmentStatusActive, profit.Status)

	_, err = env.investments.GetInvestment(ctx, 2, position.ID)
	assert.True(t, errors.Is(err, util.ErrNotFound))
	_, err = env.investments.GetProfit(ctx, 2, position.ID)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestCompleteExpired(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	env := newTestEnv(t)
	fixClock(env, start)
	simple := env.addPlan(t, starterPlan(false))
	compound := env.addPlan(t, starterPlan(true))
	env.fund(t, 1, "3000")
	env.fund(t, 2, "1000")

	p1, err := env.investments.StartInvestment(ctx, 1, simple.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	p2, err := env.investments.StartInvestment(ctx, 2, compound.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	fixClock(env, start.AddDate(0, 0, 5))
	p3, err := env.investments.StartInvestment(ctx, 1, simple.ID, decimal.NewFromInt(2000))
	require.NoError(t, err)

	t.Run("NothingMaturedYet", func(t *testing.T) {
		count, err := env.investments.CompleteExpired(ctx, start.AddDate(0, 0, 10))
		require.NoError(t, err)
		assert.Zero(t, count, "end_date must be strictly before now")
	})

	now := start.AddDate(0, 0, 11)

	t.Run("PaysOutMatured", func(t *testing.T) {
		count, err := env.investments.CompleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		assert.True(t, decimal.NewFromInt(1100).Equal(env.store.balanceOf(1)))
		assert.True(t, decimal.RequireFromString("1104.62").Equal(env.store.balanceOf(2)))

		for _, id := range []int64{p1.ID, p2.ID} {
			got, err := env.store.GetInvestmentByID(ctx, nil, id)
			require.NoError(t, err)
			assert.Equal(t, domain.InvestmentStatusCompleted, got.Status)
			require.NotNil(t, got.CompletedAt)
		}
		got, err := env.store.GetInvestmentByID(ctx, nil, p3.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvestmentStatusActive, got.Status)

		entries := env.store.entriesFor(2)
		require.Len(t, entries, 4)
		assert.Equal(t, domain.TransactionTypeTransfer, entries[2].TransactionType)
		assert.True(t, decimal.NewFromInt(1000).Equal(entries[2].SignedAmount()))
		assert.Equal(t, domain.TransactionTypeProfit, entries[3].TransactionType)
		assert.Equal(t, "104.62", entries[3].Amount.StringFixed(2))

		env.requireReconciled(t, 1)
		env.requireReconciled(t, 2)
	})

	t.Run("SecondRunIsNoop", func(t *testing.T) {
		count, err := env.investments.CompleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.True(t, decimal.NewFromInt(1100).Equal(env.store.balanceOf(1)))
		assert.Len(t, env.store.entriesFor(2), 4)
	})

	t.Run("Overview", func(t *testing.T) {
		overview, err := env.overview.Overview(ctx, 1)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1100).Equal(overview.Balance))
		assert.True(t, decimal.NewFromInt(100).Equal(overview.TotalProfits))
		assert.True(t, decimal.NewFromInt(2000).Equal(overview.TotalInvested))
		assert.Equal(t, 1, overview.ActiveInvestments)
		require.NotNil(t, overview.LastTransaction)
		assert.Equal(t, domain.TransactionTypeProfit, overview.LastTransaction.TransactionType)
	})
}

func TestCompleteExpired_FailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	env := newTestEnv(t)
	fixClock(env, start)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "1000")
	env.fund(t, 2, "1000")

	broken, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	healthy, err := env.investments.StartInvestment(ctx, 2, plan.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	env.store.failInvestments[broken.ID] = errors.New("lock timeout")
	now := start.AddDate(0, 0, 30)

	count, err := env.investments.CompleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, env.store.balanceOf(1).IsZero())
	assert.True(t, decimal.NewFromInt(1100).Equal(env.store.balanceOf(2)))

	got, err := env.store.GetInvestmentByID(ctx, nil, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusCompleted, got.Status)

	delete(env.store.failInvestments, broken.ID)
	count, err = env.investments.CompleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, decimal.NewFromInt(1100).Equal(env.store.balanceOf(1)))
	env.requireReconciled(t, 1)
}

func TestCompleteExpired_FailingBatchDoesNotStarveLaterPositions(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	env := newTestEnv(t)
	fixClock(env, start)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "30000")

	var positions []*domain.UserInvestment
	for i := 0; i < expiredBatchSize+1; i++ {
		position, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(100))
		require.NoError(t, err)
		positions = append(positions, position)
	}
	for _, position := range positions[:expiredBatchSize] {
		env.store.failInvestments[position.ID] = errors.New("lock timeout")
	}

	count, err := env.investments.CompleteExpired(ctx, start.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	last := positions[expiredBatchSize]
	got, err := env.store.GetInvestmentByID(ctx, nil, last.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusCompleted, got.Status)
	env.requireReconciled(t, 1)
}

func TestStartInvestment_RejectsSubCentAmount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "200")

	_, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.RequireFromString("100.005"))
	assert.True(t, errors.Is(err, util.ErrInvalidInput))
	assert.True(t, decimal.NewFromInt(200).Equal(env.store.balanceOf(1)))

	_, err = env.investments.StartInvestment(ctx, 1, plan.ID, decimal.RequireFromString("100.500"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("99.5").Equal(env.store.balanceOf(1)))
	env.requireReconciled(t, 1)
}

func TestCompleteExpired_LedgerFailureLeavesPositionActive(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	env := newTestEnv(t)
	fixClock(env, start)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "1000")

	position, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	env.store.failEntriesFor[1] = errors.New("constraint violation")
	count, err := env.investments.CompleteExpired(ctx, start.AddDate(0, 0, 11))
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := env.store.GetInvestmentByID(ctx, nil, position.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusActive, got.Status)
	assert.True(t, env.store.balanceOf(1).IsZero(), "principal credit must roll back")
}

func TestListActiveInvestments(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t)
	fixClock(env, start)
	plan := env.addPlan(t, starterPlan(false))
	env.fund(t, 1, "1000")

	_, err := env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(400))
	require.NoError(t, err)
	_, err = env.investments.CompleteExpired(ctx, start.AddDate(0, 0, 11))
	require.NoError(t, err)
	_, err = env.investments.StartInvestment(ctx, 1, plan.ID, decimal.NewFromInt(300))
	require.NoError(t, err)

	all, err := env.investments.ListInvestments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := env.investments.ListActiveInvestments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(active[0].Amount))

	plans, err := env.investments.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}
