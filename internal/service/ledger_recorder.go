// internal/service/ledger_recorder.go
package service

import (
	"context"
	"errors"
	"fmt"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/metrics"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"

	"go.uber.org/zap"
)

// maxReferenceAttempts bounds how many fresh references are tried when one collides.
const maxReferenceAttempts = 5

// ledgerRecorder appends immutable entries. It never touches the wallet: the balances it stores
// are the ones returned by the mutation that triggered the entry.
type ledgerRecorder struct {
	transactionRepo repository.TransactionRepository
	logger          *zap.Logger
}

// record verifies the entry's snapshot and persists it under a fresh reference with the given
// category prefix. A snapshot that does not add up is util.ErrLedgerInvariant, which aborts
// the surrounding transaction.
func (r ledgerRecorder) record(ctx context.Context, q repository.DBExecutor, prefix string, entry *domain.Transaction) error {
	if err := entry.CheckSnapshot(); err != nil {
		r.logger.Error("Ledger snapshot does not add up",
			zap.Int64("user_id", entry.UserID),
			zap.String("transaction_type", string(entry.TransactionType)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", util.ErrLedgerInvariant, err)
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		entry.Reference = domain.NewReference(prefix)
		err := r.transactionRepo.CreateTransaction(ctx, q, entry)
		if err == nil {
			metrics.RecordLedgerEntry(string(entry.TransactionType))
			return nil
		}
		if !errors.Is(err, util.ErrDuplicateEntry) {
			return fmt.Errorf("failed to record %s entry: %w", entry.TransactionType, err)
		}
		metrics.RecordReferenceCollision()
		r.logger.Warn("Ledger reference collision, retrying",
			zap.String("reference", entry.Reference),
			zap.Int("attempt", attempt))
	}
	return fmt.Errorf("failed to record %s entry after %d attempts: %w", entry.TransactionType, maxReferenceAttempts, util.ErrDuplicateEntry)
}

