package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/infra/metrics"
	"exam-access-backend/internal/infra/worker"
	"exam-access-backend/internal/usecase"
)

// ReminderWorker periodically collects soon-to-expire codes and fans reminder
// delivery out over the task pool.
type ReminderWorker struct {
	interval   time.Duration
	withinDays int
	uc         *usecase.ReminderUseCase
	pool       *worker.Pool
	log        *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, withinDays int, uc *usecase.ReminderUseCase, pool *worker.Pool, logger *zerolog.Logger) *ReminderWorker {
	l := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval:   interval,
		withinDays: withinDays,
		uc:         uc,
		pool:       pool,
		log:        &l,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Int("within_days", w.withinDays).Msg("starting reminder worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	reminders, err := w.uc.ExpiringReminders(ctx, w.withinDays)
	if err != nil {
		w.log.Error().Err(err).Msg("reminder scan failed")
		return
	}
	dispatched := 0
	for _, r := range reminders {
		r := r
		if err := w.pool.Submit(func(ctx context.Context) error {
			return w.uc.Send(ctx, r)
		}); err != nil {
			w.log.Warn().Err(err).Msg("reminder dropped")
			continue
		}
		dispatched++
	}
	if dispatched > 0 {
		metrics.AddRemindersSent(dispatched)
		w.log.Info().Int("count", dispatched).Msg("reminders dispatched")
	}
}
