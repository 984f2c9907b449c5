package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/domain/ports/adapter"
	"exam-access-backend/internal/domain/ports/repository"
)

// ReminderUseCase finds unused codes approaching expiry and hands reminders
// to the notifier. Delivery transport is outside this service.
type ReminderUseCase struct {
	codes    repository.AccessCodeRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
	now      func() time.Time
}

func NewReminderUseCase(codes repository.AccessCodeRepository, notifier adapter.Notifier, logger *zerolog.Logger) *ReminderUseCase {
	l := logger.With().Str("component", "ReminderUC").Logger()
	return &ReminderUseCase{codes: codes, notifier: notifier, log: &l, now: time.Now}
}

// ExpiringReminders returns one reminder per unused, unblocked code expiring
// within the next withinDays days.
func (uc *ReminderUseCase) ExpiringReminders(ctx context.Context, withinDays int) ([]adapter.ExpiryReminder, error) {
	now := uc.now()
	deadline := now.Add(time.Duration(withinDays) * 24 * time.Hour)
	items, err := uc.codes.FindExpiringBefore(ctx, repository.NoTX, now, deadline)
	if err != nil {
		return nil, err
	}
	out := make([]adapter.ExpiryReminder, 0, len(items))
	for _, c := range items {
		out = append(out, adapter.ExpiryReminder{
			UserID:    c.UserID,
			Code:      c.Code,
			ExpiresAt: c.ExpiresAt,
		})
	}
	return out, nil
}

// Send delivers one reminder; failures are logged and reported but carry no
// business state, so the caller may keep going.
func (uc *ReminderUseCase) Send(ctx context.Context, r adapter.ExpiryReminder) error {
	if err := uc.notifier.NotifyExpiring(ctx, r); err != nil {
		uc.log.Warn().Err(err).Str("user_id", r.UserID).Msg("reminder delivery failed")
		return err
	}
	return nil
}
