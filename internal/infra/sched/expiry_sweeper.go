package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/domain/ports/repository"
	"exam-access-backend/internal/infra/metrics"
)

// ExpirySweeper periodically snapshots how many codes expired unredeemed.
// It is read-only: expiry is enforced at redemption time, the sweeper only
// feeds reporting.
type ExpirySweeper struct {
	interval time.Duration
	codes    repository.AccessCodeRepository
	log      *zerolog.Logger
}

func NewExpirySweeper(interval time.Duration, codes repository.AccessCodeRepository, logger *zerolog.Logger) *ExpirySweeper {
	l := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{interval: interval, codes: codes, log: &l}
}

func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("starting expiry sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.codes.CountExpiredUnused(ctx, repository.NoTX, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			metrics.SetExpiredUnused(n)
			if n > 0 {
				w.log.Info().Int("count", n).Msg("codes expired unredeemed")
			}
		}
	}
}
