// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"finflow-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// EnsureWallet creates a zero-balance wallet for the user unless one already exists.
	// Concurrent callers never produce two wallets for the same user.
	EnsureWallet(ctx context.Context, q DBExecutor, userID int64) error
	// GetWalletByUserID retrieves a user's wallet.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// GetWalletByUserIDForUpdate retrieves a user's wallet and locks the row until the
	// surrounding transaction ends.
	GetWalletByUserIDForUpdate(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// CreditWallet adds amount to the balance and returns the new balance.
	CreditWallet(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error)
	// DebitWallet subtracts amount only if the balance covers it and returns the new balance.
	// It returns util.ErrInsufficientFunds without touching the row otherwise.
	DebitWallet(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error)
}
