// internal/worker/maturity.go
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredCompleter completes investment positions whose end date is before now.
type ExpiredCompleter interface {
	CompleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MaturitySweeper periodically pays out matured investment positions.
type MaturitySweeper struct {
	completer ExpiredCompleter
	interval  time.Duration
	clock     func() time.Time
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewMaturitySweeper returns a sweeper that runs completer every interval once started.
func NewMaturitySweeper(completer ExpiredCompleter, interval time.Duration, logger *zap.Logger) *MaturitySweeper {
	return &MaturitySweeper{
		completer: completer,
		interval:  interval,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick until ctx is cancelled or Stop is
// called. It blocks, so run it in its own goroutine.
func (w *MaturitySweeper) Start(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("Starting maturity sweeper", zap.Duration("interval", w.interval))

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)

		case <-w.stopChan:
			w.logger.Info("Stopping maturity sweeper")
			return

		case <-ctx.Done():
			w.logger.Info("Context cancelled, stopping maturity sweeper")
			return
		}
	}
}

func (w *MaturitySweeper) sweep(ctx context.Context) {
	count, err := w.completer.CompleteExpired(ctx, w.clock())
	if err != nil {
		w.logger.Error("Maturity sweep failed", zap.Error(err))
		return
	}
	w.logger.Debug("Maturity sweep finished", zap.Int("completed", count))
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (w *MaturitySweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
}
