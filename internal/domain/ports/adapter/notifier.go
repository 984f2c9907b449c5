package adapter

import (
	"context"
	"time"
)

// ExpiryReminder describes one unused code approaching its expiry.
type ExpiryReminder struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
}

// Notifier is the outbound port for reminder delivery. Transport (push, mail,
// bot) is a black box to this service.
type Notifier interface {
	NotifyExpiring(ctx context.Context, r ExpiryReminder) error
}
