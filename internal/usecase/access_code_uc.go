package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"exam-access-backend/internal/domain"
	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
	"exam-access-backend/internal/infra/metrics"
	"exam-access-backend/internal/retry"
)

// AccessCodeUseCase owns the access-code lifecycle: issue, redeem, block,
// delete, failed-attempt tracking. It is the only component that mutates the
// access-code table; all mutating paths run through the retry executor with
// a per-operation timeout budget.
type AccessCodeUseCase struct {
	codes     repository.AccessCodeRepository
	users     repository.UserRepository
	txm       repository.TransactionManager
	policy    retry.Policy
	opTimeout time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

func NewAccessCodeUseCase(
	codes repository.AccessCodeRepository,
	users repository.UserRepository,
	policy retry.Policy,
	opTimeout time.Duration,
	logger *zerolog.Logger,
) *AccessCodeUseCase {
	l := logger.With().Str("component", "AccessCodeUC").Logger()
	if policy.Logger == nil && policy.OnRetry == nil {
		policy.Logger = &l
	}
	base := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.IncStorageRetry(classOf(policy, err))
		if base != nil {
			base(attempt, delay, err)
		} else {
			l.Warn().Int("attempt", attempt).Dur("delay", delay).Err(err).
				Msg("transient storage error, retrying")
		}
	}
	return &AccessCodeUseCase{
		codes:     codes,
		users:     users,
		policy:    policy,
		opTimeout: opTimeout,
		log:       &l,
		now:       time.Now,
	}
}

// WithClock overrides the time source; tests pin expiry boundaries with it.
func (uc *AccessCodeUseCase) WithClock(now func() time.Time) *AccessCodeUseCase {
	uc.now = now
	return uc
}

// WithTxManager enables transactional multi-write operations. Without it,
// IssueForNewUser degrades to sequential writes.
func (uc *AccessCodeUseCase) WithTxManager(txm repository.TransactionManager) *AccessCodeUseCase {
	uc.txm = txm
	return uc
}

func classOf(p retry.Policy, err error) string {
	if p.IsLockTimeout != nil && p.IsLockTimeout(err) {
		return "lock_timeout"
	}
	if p.IsDuplicate != nil && p.IsDuplicate(err) {
		return "duplicate_key"
	}
	return "other"
}

func (uc *AccessCodeUseCase) budget(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.opTimeout)
}

// mapInfra folds exhausted-transient and timed-out storage errors into
// ErrServiceUnavailable so callers can tell "try again" from "code rejected".
// Business errors pass through untouched.
func (uc *AccessCodeUseCase) mapInfra(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrCodeAlreadyUsed),
		errors.Is(err, domain.ErrCodeBlocked),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidPaymentAmount),
		errors.Is(err, domain.ErrInvalidDurationDays),
		errors.Is(err, domain.ErrInvalidArgument):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	case uc.policy.IsLockTimeout != nil && uc.policy.IsLockTimeout(err):
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	default:
		return err
	}
}

// Create issues a tier-derived code to an existing user. The generator runs
// inside the retried op so a code collision (duplicate key) gets a fresh
// code on the next attempt.
func (uc *AccessCodeUseCase) Create(ctx context.Context, userID string, managerID *string, amount int64) (*model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	if _, err := model.TierForAmount(amount); err != nil {
		return nil, err
	}
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	var created *model.AccessCode
	pol := uc.policy
	pol.RetryOnDuplicate = true
	err := retry.Do(ctx, pol, func(ctx context.Context) error {
		codeStr, err := generateCode()
		if err != nil {
			return err
		}
		c, err := model.NewAccessCode(codeStr, userID, managerID, amount, uc.now())
		if err != nil {
			return err
		}
		if err := uc.codes.Insert(ctx, repository.NoTX, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, uc.mapInfra(err)
	}

	metrics.IncCodeIssued(string(created.Tier))
	uc.log.Info().Str("code_id", created.ID).Str("user_id", userID).
		Str("tier", string(created.Tier)).Msg("access code issued")
	return created, nil
}

// CreateCustom issues a CUSTOM-tier code with an explicit validity window,
// bypassing the tier table. startAt zero means "now".
func (uc *AccessCodeUseCase) CreateCustom(ctx context.Context, userID string, managerID *string, amount int64, durationDays int, startAt time.Time, endAt *time.Time) (*model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if startAt.IsZero() {
		startAt = uc.now()
	}

	var created *model.AccessCode
	pol := uc.policy
	pol.RetryOnDuplicate = true
	err := retry.Do(ctx, pol, func(ctx context.Context) error {
		codeStr, err := generateCode()
		if err != nil {
			return err
		}
		c, err := model.NewCustomAccessCode(codeStr, userID, managerID, amount, durationDays, startAt, endAt)
		if err != nil {
			return err
		}
		if err := uc.codes.Insert(ctx, repository.NoTX, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, uc.mapInfra(err)
	}

	metrics.IncCodeIssued(string(model.TierCustom))
	uc.log.Info().Str("code_id", created.ID).Str("user_id", userID).Msg("custom access code issued")
	return created, nil
}

// IssueForNewUser registers a user and issues their first code as one unit:
// either both rows land or neither does. Seeding and bulk onboarding use it so
// a failed code insert never leaves an orphaned account behind.
func (uc *AccessCodeUseCase) IssueForNewUser(ctx context.Context, username string, role model.Role, managerID *string, amount int64) (*model.User, *model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	if _, err := model.TierForAmount(amount); err != nil {
		return nil, nil, err
	}

	u, err := model.NewUser("", username, role)
	if err != nil {
		return nil, nil, err
	}

	var created *model.AccessCode
	pol := uc.policy
	pol.RetryOnDuplicate = true
	err = retry.Do(ctx, pol, func(ctx context.Context) error {
		created = nil
		capture := func(ctx context.Context, tx repository.Tx) error {
			if err := uc.users.Save(ctx, tx, u); err != nil {
				return err
			}
			codeStr, err := generateCode()
			if err != nil {
				return err
			}
			c, err := model.NewAccessCode(codeStr, u.ID, managerID, amount, uc.now())
			if err != nil {
				return err
			}
			if err := uc.codes.Insert(ctx, tx, c); err != nil {
				return err
			}
			created = c
			return nil
		}
		if uc.txm == nil {
			return capture(ctx, repository.NoTX)
		}
		return uc.txm.WithTx(ctx, pgx.TxOptions{}, capture)
	})
	if err != nil {
		return nil, nil, uc.mapInfra(err)
	}

	metrics.IncCodeIssued(string(created.Tier))
	uc.log.Info().Str("user_id", u.ID).Str("code_id", created.ID).
		Str("tier", string(created.Tier)).Msg("user registered with first code")
	return u, created, nil
}

func (uc *AccessCodeUseCase) requireUser(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	_, err := uc.users.FindByID(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	return uc.mapInfra(err)
}

// ValidateAndUse redeems a code for its owner. Checks run in a fixed order
// (blocked, expired, already used) and the commit is a conditional update, so
// exactly one of N concurrent callers wins and the rest observe
// ErrCodeAlreadyUsed. Every rejection also records a failed attempt,
// best-effort.
func (uc *AccessCodeUseCase) ValidateAndUse(ctx context.Context, code, userID string) (*model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	c, err := uc.codes.FindByCodeAndUser(ctx, repository.NoTX, code, userID)
	if err != nil {
		err = uc.mapInfra(err)
		if errors.Is(err, domain.ErrCodeNotFound) {
			uc.RecordFailedAttempt(code)
			metrics.IncRedemption("not_found")
		} else {
			metrics.IncRedemption("unavailable")
		}
		return nil, err
	}

	now := uc.now()
	if err := c.Redeemable(now); err != nil {
		uc.RecordFailedAttempt(code)
		metrics.IncRedemption(rejectionOutcome(err))
		return nil, err
	}

	err = retry.Do(ctx, uc.policy, func(ctx context.Context) error {
		return uc.codes.MarkUsed(ctx, repository.NoTX, c.ID, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrCodeAlreadyUsed) {
			// lost the race after a clean read
			uc.RecordFailedAttempt(code)
			metrics.IncRedemption("used")
			return nil, err
		}
		metrics.IncRedemption("unavailable")
		return nil, uc.mapInfra(err)
	}

	c.IsUsed = true
	c.UsedAt = &now
	c.UpdatedAt = now
	metrics.IncRedemption("ok")
	uc.log.Info().Str("code_id", c.ID).Str("user_id", userID).Msg("access code redeemed")
	return c, nil
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeBlocked):
		return "blocked"
	case errors.Is(err, domain.ErrCodeExpired):
		return "expired"
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return "used"
	default:
		return "rejected"
	}
}

// RecordFailedAttempt bumps the abuse counter on the matching row, if any.
// It runs on a detached context so a canceled request cannot abort it, and
// its own failure is logged, never propagated over the original error.
func (uc *AccessCodeUseCase) RecordFailedAttempt(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := uc.codes.IncrementAttempts(ctx, repository.NoTX, code); err != nil {
		uc.log.Warn().Err(err).Msg("failed-attempt record dropped")
		return
	}
	metrics.IncFailedAttempt()
}

// ToggleBlock sets or clears the administrative block. The repo performs a
// narrow column-targeted update rather than a full row save, and the call is
// retried on lock contention.
func (uc *AccessCodeUseCase) ToggleBlock(ctx context.Context, id string, blocked bool, until *time.Time) (*model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	var updated *model.AccessCode
	err := retry.Do(ctx, uc.policy, func(ctx context.Context) error {
		c, err := uc.codes.SetBlocked(ctx, repository.NoTX, id, blocked, until)
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, uc.mapInfra(err)
	}
	uc.log.Info().Str("code_id", id).Bool("blocked", blocked).Msg("block state changed")
	return updated, nil
}

// Delete hard-removes a code. Exam results that referenced its consumption
// remain intact; the removal is terminal.
func (uc *AccessCodeUseCase) Delete(ctx context.Context, id string) error {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	err := retry.Do(ctx, uc.policy, func(ctx context.Context) error {
		return uc.codes.Delete(ctx, repository.NoTX, id)
	})
	if err != nil {
		return uc.mapInfra(err)
	}
	uc.log.Info().Str("code_id", id).Msg("access code deleted")
	return nil
}

// GetActiveCodesForUser returns the user's unused, unexpired codes.
func (uc *AccessCodeUseCase) GetActiveCodesForUser(ctx context.Context, userID string) ([]*model.AccessCode, error) {
	ctx, cancel := uc.budget(ctx)
	defer cancel()

	out, err := uc.codes.FindActiveByUser(ctx, repository.NoTX, userID, uc.now())
	if err != nil {
		return nil, uc.mapInfra(err)
	}
	return out, nil
}

// HasActiveEntitlement is the exam-gate check: at least one active, unused,
// unexpired code anywhere on the account. Deliberately account-wide, not
// exam-specific.
func (uc *AccessCodeUseCase) HasActiveEntitlement(ctx context.Context, userID string) (bool, error) {
	codes, err := uc.GetActiveCodesForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(codes) > 0, nil
}
