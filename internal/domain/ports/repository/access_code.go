package repository

import (
	"context"
	"time"

	"exam-access-backend/internal/domain/model"
)

// ListFilter narrows an access-code listing. Nil fields are ignored.
type ListFilter struct {
	UserID    *string
	IsUsed    *bool
	IsBlocked *bool
}

// AccessCodeListing is the read-side projection joining code rows with the
// owning and issuing usernames for display and audit.
type AccessCodeListing struct {
	model.AccessCode
	OwnerUsername  string
	IssuerUsername *string
}

// AccessCodeRepository is the port for the access-code table. The Redemption
// Engine is the only writer; MarkUsed and SetBlocked are narrow conditional
// updates so row locks are held as briefly as possible.
type AccessCodeRepository interface {
	// Insert persists a new code. A duplicate code string surfaces as a
	// duplicate-key error the caller may classify and retry.
	Insert(ctx context.Context, tx Tx, code *model.AccessCode) error
	// FindByCodeAndUser loads the row scoped to (code, userID).
	FindByCodeAndUser(ctx context.Context, tx Tx, code, userID string) (*model.AccessCode, error)
	// FindByID loads a row by its identifier.
	FindByID(ctx context.Context, tx Tx, id string) (*model.AccessCode, error)
	// MarkUsed flips is_used false -> true conditionally. Exactly one of a
	// set of concurrent callers succeeds; losers get domain.ErrCodeAlreadyUsed.
	MarkUsed(ctx context.Context, tx Tx, id string, at time.Time) error
	// IncrementAttempts bumps attempt_count on the row matching the code
	// string, if any. Missing rows are not an error.
	IncrementAttempts(ctx context.Context, tx Tx, code string) error
	// SetBlocked updates only the block columns and returns the fresh row.
	SetBlocked(ctx context.Context, tx Tx, id string, blocked bool, until *time.Time) (*model.AccessCode, error)
	// Delete hard-removes the row.
	Delete(ctx context.Context, tx Tx, id string) error
	// FindActiveByUser returns unused, unexpired codes for the user.
	FindActiveByUser(ctx context.Context, tx Tx, userID string, now time.Time) ([]*model.AccessCode, error)
	// FindExpiringBefore returns unused, unblocked codes expiring in (now, deadline].
	FindExpiringBefore(ctx context.Context, tx Tx, now, deadline time.Time) ([]*model.AccessCode, error)
	// CountExpiredUnused counts codes whose window closed without redemption.
	CountExpiredUnused(ctx context.Context, tx Tx, now time.Time) (int, error)
	// List returns a filtered page (newest first) joined with user identity.
	List(ctx context.Context, tx Tx, filter ListFilter, offset, limit int) ([]*AccessCodeListing, error)
	// Count returns the size of the filtered set, independent of paging.
	Count(ctx context.Context, tx Tx, filter ListFilter) (int, error)
}
