// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet represents a user's wallet. Each user owns exactly one.
type Wallet struct {
	ID        int64           `db:"id" json:"id"`                 // Primary key, BIGSERIAL in DB
	UserID    int64           `db:"user_id" json:"user_id"`       // Owning user, UNIQUE in DB
	Balance   decimal.Decimal `db:"balance" json:"balance"`       // Current balance, NUMERIC(14, 2), never negative
	CreatedAt time.Time       `db:"created_at" json:"created_at"` // Timestamp of creation
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"` // Timestamp of last update
}

// NewWallet creates a new Wallet instance with a zero balance.
func NewWallet(userID int64) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AmountScale is the number of decimal places balances and ledger amounts are stored with.
const AmountScale = 2

// ValidAmount reports whether amount is positive and representable at AmountScale without
// rounding. "100.500" is valid, "100.005" is not.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.Sign() > 0 && amount.Equal(amount.Truncate(AmountScale))
}

// CanCover reports whether the wallet holds at least amount.
func (w *Wallet) CanCover(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
