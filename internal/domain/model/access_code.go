package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"exam-access-backend/internal/domain"
)

// AccessCode is a prepaid, single-use token granting time-boxed entitlement
// to paid exam content. It is consumed exactly once; expiry and blocking are
// checked against the clock at redemption time.
type AccessCode struct {
	ID                   string
	Code                 string
	UserID               string
	GeneratedByManagerID *string // nil for system-generated codes
	PaymentAmount        int64
	DurationDays         int
	Tier                 PaymentTier
	ExpiresAt            time.Time
	IsUsed               bool
	UsedAt               *time.Time
	AttemptCount         int
	IsBlocked            bool
	BlockedUntil         *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewAccessCode builds a tier-derived access code. The code string must come
// from the caller (see usecase.generateCode) so uniqueness collisions can be
// retried at the persistence boundary.
func NewAccessCode(code, userID string, managerID *string, amount int64, now time.Time) (*AccessCode, error) {
	if code == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	entry, err := TierForAmount(amount)
	if err != nil {
		return nil, err
	}
	return &AccessCode{
		ID:                   ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Code:                 code,
		UserID:               userID,
		GeneratedByManagerID: managerID,
		PaymentAmount:        amount,
		DurationDays:         entry.DurationDays,
		Tier:                 entry.Tier,
		ExpiresAt:            now.Add(time.Duration(entry.DurationDays) * 24 * time.Hour),
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// NewCustomAccessCode builds a CUSTOM-tier code with an explicit validity
// window. Either durationDays > 0 with startAt as the window origin, or an
// explicit endAt strictly after startAt.
func NewCustomAccessCode(code, userID string, managerID *string, amount int64, durationDays int, startAt time.Time, endAt *time.Time) (*AccessCode, error) {
	if code == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var expires time.Time
	var days int
	switch {
	case endAt != nil:
		if !endAt.After(startAt) {
			return nil, domain.ErrInvalidDurationDays
		}
		expires = *endAt
		days = int(endAt.Sub(startAt).Hours() / 24)
	case durationDays > 0:
		days = durationDays
		expires = startAt.Add(time.Duration(durationDays) * 24 * time.Hour)
	default:
		return nil, domain.ErrInvalidDurationDays
	}
	return &AccessCode{
		ID:                   ulid.MustNew(ulid.Timestamp(startAt), rand.Reader).String(),
		Code:                 code,
		UserID:               userID,
		GeneratedByManagerID: managerID,
		PaymentAmount:        amount,
		DurationDays:         days,
		Tier:                 TierCustom,
		ExpiresAt:            expires,
		CreatedAt:            startAt,
		UpdatedAt:            startAt,
	}, nil
}

// BlockedAt reports whether the code is administratively blocked at t,
// either indefinitely (no blocked_until) or inside a time-boxed window.
func (c *AccessCode) BlockedAt(t time.Time) bool {
	if !c.IsBlocked {
		return false
	}
	if c.BlockedUntil == nil {
		return true
	}
	return t.Before(*c.BlockedUntil)
}

// ExpiredAt reports whether the entitlement window has closed. The boundary
// itself counts as expired: only now < expiresAt is valid.
func (c *AccessCode) ExpiredAt(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// Redeemable checks the full state machine in the fixed order
// blocked, expired, used, returning the first violated rule.
func (c *AccessCode) Redeemable(t time.Time) error {
	if c.BlockedAt(t) {
		return domain.ErrCodeBlocked
	}
	if c.ExpiredAt(t) {
		return domain.ErrCodeExpired
	}
	if c.IsUsed {
		return domain.ErrCodeAlreadyUsed
	}
	return nil
}

func (c *AccessCode) IsZero() bool { return c == nil || c.ID == "" }
