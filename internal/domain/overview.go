// internal/domain/overview.go
package domain

import "github.com/shopspring/decimal"

// Overview aggregates a user's ledger and positions as of the moment it was built.
type Overview struct {
	UserID            int64           `json:"user_id"`
	Balance           decimal.Decimal `json:"balance"`
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  decimal.Decimal `json:"total_withdrawals"`
	TotalProfits      decimal.Decimal `json:"total_profits"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	ActiveInvestments int             `json:"active_investments"`
	LastTransaction   *Transaction    `json:"last_transaction"`
}

// Reconciliation is the result of replaying a wallet's ledger.
type Reconciliation struct {
	UserID        int64           `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Entries       int             `json:"entries"`
	Consistent    bool            `json:"consistent"`
}

// Replay sums the signed amounts of successful entries in the order given.
func Replay(entries []Transaction) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		if entries[i].Status != TransactionStatusSuccessful {
			continue
		}
		total = total.Add(entries[i].SignedAmount())
	}
	return total
}
