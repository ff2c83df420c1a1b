package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/usecase"
)

// ExpiryWorker periodically revokes access for lapsed subscriptions via the
// sweep use case.
type ExpiryWorker struct {
	interval time.Duration
	sweepUC  usecase.SweepUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, sweepUC usecase.SweepUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		sweepUC:  sweepUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.runSweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

func (w *ExpiryWorker) runSweep(ctx context.Context) {
	n, err := w.sweepUC.Sweep(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired subscriptions revoked")
	}
}
