// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input provided")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAmountBelowMinimum     = errors.New("amount is below the minimum deposit")
	ErrAmountOutOfRange       = errors.New("amount is outside the plan limits")
	ErrInvalidDecision        = errors.New("invalid status option")
	ErrRequestFinalized       = errors.New("request has already been finalized")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrDuplicateEntry         = errors.New("duplicate entry")
	ErrUnauthorized           = errors.New("authentication required")
	ErrForbidden              = errors.New("insufficient permissions")

	// ErrLedgerInvariant means a balance snapshot disagrees with the arithmetic of the
	// mutation that produced it. It is never a user error.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
