package notify

import (
	"context"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/domain/ports/adapter"
	"exam-access-backend/internal/infra/logging"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier records reminders as structured log lines. It stands in for a
// real delivery channel (push, mail) which the platform provides elsewhere.
type LogNotifier struct {
	log *zerolog.Logger
	dev bool
}

func NewLogNotifier(logger *zerolog.Logger, dev bool) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l, dev: dev}
}

func (n *LogNotifier) NotifyExpiring(_ context.Context, r adapter.ExpiryReminder) error {
	n.log.Info().
		Str("user_id", r.UserID).
		Str("code", logging.Redact(r.Code, n.dev)).
		Time("expires_at", r.ExpiresAt).
		Msg("access code expiring soon")
	return nil
}
