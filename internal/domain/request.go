// internal/domain/request.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of a deposit or withdrawal request.
// pending is initial; approved and rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ParseDecision converts an admin decision into a terminal status.
// Anything other than approved or rejected is invalid.
func ParseDecision(decision string) (RequestStatus, bool) {
	switch RequestStatus(decision) {
	case RequestStatusApproved:
		return RequestStatusApproved, true
	case RequestStatusRejected:
		return RequestStatusRejected, true
	}
	return "", false
}

// DepositRequest is a user's claim that funds were sent, awaiting admin review.
type DepositRequest struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Proof     string          `db:"proof" json:"proof"` // Opaque reference to uploaded evidence
	Status    RequestStatus   `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// NewDepositRequest creates a pending deposit request.
func NewDepositRequest(userID int64, amount decimal.Decimal, proof string) *DepositRequest {
	now := time.Now().UTC()
	return &DepositRequest{
		UserID:    userID,
		Amount:    amount,
		Proof:     proof,
		Status:    RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithdrawalRequest asks for funds to be paid out to an external destination.
type WithdrawalRequest struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	WalletAddress string          `db:"wallet_address" json:"wallet_address"` // Opaque destination identifier
	Status        RequestStatus   `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWithdrawalRequest creates a pending withdrawal request.
func NewWithdrawalRequest(userID int64, amount decimal.Decimal, walletAddress string) *WithdrawalRequest {
	now := time.Now().UTC()
	return &WithdrawalRequest{
		UserID:        userID,
		Amount:        amount,
		WalletAddress: walletAddress,
		Status:        RequestStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
