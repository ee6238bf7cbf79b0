// Package maintenance runs the verification retention pass on a timer.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// Cleaner is the retention pass. *verification.Store satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context) (verification.CleanupResult, error)
}

// Runner invokes Cleanup every interval until its context ends.
type Runner struct {
	cleaner  Cleaner
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner returns a Runner. A nil logger falls back to slog.Default.
func NewRunner(cleaner Cleaner, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cleaner: cleaner, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. A non-positive interval returns at once.
func (r *Runner) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("verification maintenance disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick performs a single retention pass and logs the result.
func (r *Runner) Tick(ctx context.Context) verification.CleanupResult {
	res, err := r.cleaner.Cleanup(ctx)
	if err != nil {
		r.logger.Error("verification cleanup failed to persist", "error", err)
	}
	if res.RemovedRecords > 0 {
		r.logger.Info("verifications evicted",
			"messages", len(res.EvictedMessages),
			"records", res.RemovedRecords,
			"remaining", res.Remaining,
		)
	} else {
		r.logger.Debug("verification cleanup: nothing to evict", "remaining", res.Remaining)
	}
	return res
}
