// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"

	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, balance, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct {
	// Stateless: every method receives the DBExecutor it should run on.
}

var _ repository.WalletRepository = (*WalletRepository)(nil)

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() *WalletRepository {
	return &WalletRepository{}
}

// EnsureWallet inserts a zero-balance wallet for the user if none exists.
// The unique user_id constraint makes concurrent calls collapse onto a single row.
func (r *WalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, userID int64) error {
	query := `INSERT INTO wallets (user_id, balance, created_at, updated_at)
              VALUES ($1, 0, $2, $2)
              ON CONFLICT (user_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to ensure wallet for user %d: %w", userID, err)
	}
	return nil
}

// GetWalletByUserID retrieves a wallet by its owner using the provided DBExecutor.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	return r.getWallet(ctx, q, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
}

// GetWalletByUserIDForUpdate retrieves a wallet and holds a row lock until the transaction ends.
func (r *WalletRepository) GetWalletByUserIDForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	return r.getWallet(ctx, q, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *WalletRepository) getWallet(ctx context.Context, q repository.DBExecutor, query string, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// CreditWallet adds amount to the balance in a single statement and returns the new balance.
func (r *WalletRepository) CreditWallet(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = $2 WHERE id = $3 RETURNING balance`
	var balance decimal.Decimal
	err := q.GetContext(ctx, &balance, query, amount, time.Now().UTC(), walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, util.ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to credit wallet %d: %w", walletID, err)
	}
	return balance, nil
}

// DebitWallet subtracts amount only when the balance covers it. The check and the write are
// one statement, so a debit can never drive the balance below zero.
func (r *WalletRepository) DebitWallet(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets SET balance = balance - $1, updated_at = $2
              WHERE id = $3 AND balance >= $1
              RETURNING balance`
	var balance decimal.Decimal
	err := q.GetContext(ctx, &balance, query, amount, time.Now().UTC(), walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, util.ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("failed to debit wallet %d: %w", walletID, err)
	}
	return balance, nil
}
