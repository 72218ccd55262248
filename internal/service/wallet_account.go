// internal/service/wallet_account.go
package service

import (
	"context"
	"fmt"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"

	"github.com/shopspring/decimal"
)

// balanceChange is the before/after pair of one wallet mutation.
type balanceChange struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// walletAccount is the only code path that changes a wallet balance. Every method must run on
// a transaction executor; the caller records the ledger entry in the same transaction.
type walletAccount struct {
	walletRepo repository.WalletRepository
}

// lock returns the user's wallet, creating it on first use, and holds its row lock.
func (a walletAccount) lock(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	if err := a.walletRepo.EnsureWallet(ctx, q, userID); err != nil {
		return nil, err
	}
	wallet, err := a.walletRepo.GetWalletByUserIDForUpdate(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// credit adds amount to a locked wallet.
func (a walletAccount) credit(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet, amount decimal.Decimal) (balanceChange, error) {
	if !domain.ValidAmount(amount) {
		return balanceChange{}, util.ErrInvalidInput
	}
	before := wallet.Balance
	after, err := a.walletRepo.CreditWallet(ctx, q, wallet.ID, amount)
	if err != nil {
		return balanceChange{}, err
	}
	wallet.Balance = after
	return balanceChange{Before: before, After: after}, nil
}

// debit subtracts amount from a locked wallet, or returns util.ErrInsufficientFunds and leaves
// the balance untouched.
func (a walletAccount) debit(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet, amount decimal.Decimal) (balanceChange, error) {
	if !domain.ValidAmount(amount) {
		return balanceChange{}, util.ErrInvalidInput
	}
	if !wallet.CanCover(amount) {
		return balanceChange{}, util.ErrInsufficientFunds
	}
	before := wallet.Balance
	after, err := a.walletRepo.DebitWallet(ctx, q, wallet.ID, amount)
	if err != nil {
		return balanceChange{}, err
	}
	wallet.Balance = after
	return balanceChange{Before: before, After: after}, nil
}
