// internal/domain/transaction.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionType defines the kind of balance change a ledger entry records.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeProfit       TransactionType = "profit"
	TransactionTypeManualCredit TransactionType = "manual_credit"
	TransactionTypeManualDebit  TransactionType = "manual_debit"
	TransactionTypeTransfer     TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeProfit,
		TransactionTypeManualCredit, TransactionTypeManualDebit, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus defines the status of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusSuccessful, TransactionStatusFailed:
		return true
	}
	return false
}

// Reference prefixes mark the category of the event that produced an entry.
const (
	ReferencePrefixDeposit    = "DEP"
	ReferencePrefixWithdrawal = "WDR"
	ReferencePrefixInvestment = "INV"
	ReferencePrefixProfit     = "PRF"
	ReferencePrefixManual     = "MAN"
	ReferencePrefixGeneric    = "TXN"
)

// Transaction is an immutable ledger entry. Once inserted it is never updated or deleted.
type Transaction struct {
	ID              int64             `db:"id" json:"id"`                             // Primary key, BIGSERIAL in DB
	UserID          int64             `db:"user_id" json:"user_id"`                   // Owner of the wallet the entry belongs to
	Reference       string            `db:"reference" json:"reference"`               // Globally unique, e.g. DEP-3F9A0C1B2D
	TransactionType TransactionType   `db:"transaction_type" json:"transaction_type"` // deposit, withdrawal, profit, ...
	Amount          decimal.Decimal   `db:"amount" json:"amount"`                     // Always positive; sign comes from the type
	Fee             decimal.Decimal   `db:"fee" json:"fee"`                           // Informational, not applied to the balance
	BalanceBefore   decimal.Decimal   `db:"balance_before" json:"balance_before"`     // Wallet balance before the mutation
	BalanceAfter    decimal.Decimal   `db:"balance_after" json:"balance_after"`       // Wallet balance after the mutation
	Status          TransactionStatus `db:"status" json:"status"`
	Description     string            `db:"description" json:"description"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

// NewTransaction creates a successful ledger entry stamped with the balances of the mutation
// that produced it. The reference is left empty for the recorder to generate.
func NewTransaction(
	userID int64,
	txType TransactionType,
	amount decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
	description string,
) *Transaction {
	return &Transaction{
		UserID:          userID,
		TransactionType: txType,
		Amount:          amount,
		Fee:             decimal.Zero,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		Status:          TransactionStatusSuccessful,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}
}

// SignedAmount returns the amount with the sign it contributes to the wallet balance.
// Transfers move money in either direction, so their sign follows the recorded snapshot.
func (t *Transaction) SignedAmount() decimal.Decimal {
	switch t.TransactionType {
	case TransactionTypeDeposit, TransactionTypeProfit, TransactionTypeManualCredit:
		return t.Amount
	case TransactionTypeWithdrawal, TransactionTypeManualDebit:
		return t.Amount.Neg()
	case TransactionTypeTransfer:
		if t.BalanceAfter.LessThan(t.BalanceBefore) {
			return t.Amount.Neg()
		}
		return t.Amount
	}
	return decimal.Zero
}

// CheckSnapshot verifies balance_after == balance_before + signed amount.
func (t *Transaction) CheckSnapshot() error {
	if t.Amount.Sign() <= 0 {
		return fmt.Errorf("entry amount %s is not positive", t.Amount)
	}
	expected := t.BalanceBefore.Add(t.SignedAmount())
	if !expected.Equal(t.BalanceAfter) {
		return fmt.Errorf("%s entry: balance_before %s delta %s -> expected %s, got %s",
			t.TransactionType, t.BalanceBefore, t.SignedAmount(), expected, t.BalanceAfter)
	}
	return nil
}

// NewReference returns a short opaque token prefixed by a category marker, e.g. DEP-3F9A0C1B2D.
func NewReference(prefix string) string {
	if prefix == "" {
		prefix = ReferencePrefixGeneric
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(token[:10])
}

// TransactionFilter narrows a ledger listing. A zero UserID lists every user (admin view).
type TransactionFilter struct {
	UserID int64
	Type   TransactionType
	Status TransactionStatus
	Search string
	Limit  int
	Offset int
}
