// Package catalog loads the investment plan catalog from YAML and seeds it into storage.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// PlanConfig is one plan as written in the catalog file. Amounts are strings so they are
// parsed as exact decimals.
type PlanConfig struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	MinAmount        string `yaml:"min_amount"`
	MaxAmount        string `yaml:"max_amount"`
	DailyROI         string `yaml:"daily_roi"`
	DurationDays     int    `yaml:"duration_days"`
	TotalReturn      string `yaml:"total_return"`
	CompoundInterest bool   `yaml:"compound_interest"`
}

type plansFile struct {
	Plans []PlanConfig `yaml:"plans"`
}

// LoadPlans reads and validates the plan catalog.
func LoadPlans(plansPath string) ([]domain.InvestmentPlan, error) {
	if !filepath.IsAbs(plansPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		plansPath = filepath.Join(wd, plansPath)
	}

	data, err := os.ReadFile(plansPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", plansPath, err)
	}
	return ParsePlans(data)
}

// ParsePlans decodes a YAML catalog. Plan names must be unique.
func ParsePlans(data []byte) ([]domain.InvestmentPlan, error) {
	var file plansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse plan catalog: %w", err)
	}

	plans := make([]domain.InvestmentPlan, 0, len(file.Plans))
	seen := make(map[string]bool, len(file.Plans))
	for i, cfg := range file.Plans {
		plan, err := cfg.toPlan()
		if err != nil {
			return nil, fmt.Errorf("plan at index %d: %w", i, err)
		}
		if seen[plan.Name] {
			return nil, fmt.Errorf("plan at index %d: duplicate name %q", i, plan.Name)
		}
		seen[plan.Name] = true
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c PlanConfig) toPlan() (domain.InvestmentPlan, error) {
	plan := domain.InvestmentPlan{
		Name:             c.Name,
		Description:      c.Description,
		DurationDays:     c.DurationDays,
		CompoundInterest: c.CompoundInterest,
	}

	fields := []struct {
		name     string
		raw      string
		dst      *decimal.Decimal
		optional bool
	}{
		{"min_amount", c.MinAmount, &plan.MinAmount, false},
		{"max_amount", c.MaxAmount, &plan.MaxAmount, false},
		{"daily_roi", c.DailyROI, &plan.DailyROI, false},
		{"total_return", c.TotalReturn, &plan.TotalReturn, true},
	}
	for _, f := range fields {
		if f.raw == "" {
			if f.optional {
				continue
			}
			return plan, fmt.Errorf("missing %s", f.name)
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return plan, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = value
	}

	if err := plan.Validate(); err != nil {
		return plan, err
	}
	return plan, nil
}

// SeedPlans upserts every plan by name. Existing positions keep the terms they were opened with.
func SeedPlans(ctx context.Context, q repository.DBExecutor, repo repository.PlanRepository, plans []domain.InvestmentPlan, logger *zap.Logger) error {
	for i := range plans {
		if err := repo.UpsertPlan(ctx, q, &plans[i]); err != nil {
			return fmt.Errorf("failed to seed plan %q: %w", plans[i].Name, err)
		}
	}
	logger.Info("Investment plans seeded", zap.Int("count", len(plans)))
	return nil
}
