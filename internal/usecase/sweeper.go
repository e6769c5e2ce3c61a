package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

// Sweeper enforces the ledger retention horizon.
type Sweeper struct {
	ledger ports.Ledger
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewSweeper constructs the retention job.
func NewSweeper(ledger ports.Ledger, clock clockwork.Clock, log *slog.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{ledger: ledger, clock: clock, logger: log}
}

// Sweep deletes observations dated before today-horizonDays. Metadata is kept.
// An identity that solves the same problem after its row expired is recorded again.
func (s *Sweeper) Sweep(ctx context.Context, horizonDays int) (int64, error) {
	if horizonDays < 0 {
		return 0, fmt.Errorf("horizon %d: %w", horizonDays, domain.ErrInvalidArgument)
	}

	cutoff := domain.AddDays(s.clock.Now(), -horizonDays)
	deleted, err := s.ledger.DeleteObservationsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete observations before %s: %w", domain.FormatDay(cutoff), err)
	}

	s.logger.Info("retention sweep finished", "cutoff", domain.FormatDay(cutoff), "deleted", deleted)
	return deleted, nil
}
