package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
)

// AccessCodeView is the wire-facing projection of a code joined with user
// identity. The wire shape is deliberately decoupled from the storage row.
type AccessCodeView struct {
	ID             string            `json:"id"`
	Code           string            `json:"code"`
	UserID         string            `json:"user_id"`
	OwnerUsername  string            `json:"owner_username"`
	IssuerUsername *string           `json:"issuer_username,omitempty"`
	PaymentAmount  int64             `json:"payment_amount"`
	DurationDays   int               `json:"duration_days"`
	Tier           model.PaymentTier `json:"payment_tier"`
	ExpiresAt      time.Time         `json:"expires_at"`
	IsUsed         bool              `json:"is_used"`
	UsedAt         *time.Time        `json:"used_at,omitempty"`
	AttemptCount   int               `json:"attempt_count"`
	IsBlocked      bool              `json:"is_blocked"`
	BlockedUntil   *time.Time        `json:"blocked_until,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// QueryFilter narrows ListAccessCodes. Nil fields are ignored.
type QueryFilter struct {
	UserID    *string
	IsUsed    *bool
	IsBlocked *bool
}

// QueryUseCase is the read side of the entitlement subsystem. It never
// mutates the access-code table.
type QueryUseCase struct {
	codes repository.AccessCodeRepository
	log   *zerolog.Logger
}

func NewQueryUseCase(codes repository.AccessCodeRepository, logger *zerolog.Logger) *QueryUseCase {
	l := logger.With().Str("component", "QueryUC").Logger()
	return &QueryUseCase{codes: codes, log: &l}
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListAccessCodes returns one page of codes (newest first) and the total size
// of the filtered set. Pages are 1-based.
func (uc *QueryUseCase) ListAccessCodes(ctx context.Context, filter QueryFilter, page, limit int) ([]*AccessCodeView, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	rf := repository.ListFilter{UserID: filter.UserID, IsUsed: filter.IsUsed, IsBlocked: filter.IsBlocked}

	total, err := uc.codes.Count(ctx, repository.NoTX, rf)
	if err != nil {
		return nil, 0, err
	}

	rows, err := uc.codes.List(ctx, repository.NoTX, rf, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*AccessCodeView, 0, len(rows))
	for _, r := range rows {
		views = append(views, viewFromListing(r))
	}
	return views, total, nil
}

// GetPaymentTiers exposes the static tier table for client display.
func (uc *QueryUseCase) GetPaymentTiers() []model.TierEntry {
	return model.PaymentTiers()
}

func viewFromListing(l *repository.AccessCodeListing) *AccessCodeView {
	return &AccessCodeView{
		ID:             l.ID,
		Code:           l.Code,
		UserID:         l.UserID,
		OwnerUsername:  l.OwnerUsername,
		IssuerUsername: l.IssuerUsername,
		PaymentAmount:  l.PaymentAmount,
		DurationDays:   l.DurationDays,
		Tier:           l.Tier,
		ExpiresAt:      l.ExpiresAt,
		IsUsed:         l.IsUsed,
		UsedAt:         l.UsedAt,
		AttemptCount:   l.AttemptCount,
		IsBlocked:      l.IsBlocked,
		BlockedUntil:   l.BlockedUntil,
		CreatedAt:      l.CreatedAt,
	}
}
