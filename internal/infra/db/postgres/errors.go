package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
)

// SQLSTATE codes the retry policy cares about.
const (
	sqlstateLockNotAvailable = "55P03"
	sqlstateDeadlockDetected = "40P01"
	sqlstateUniqueViolation  = "23505"
)

// IsLockTimeout classifies lock-wait-timeout signals from Postgres: a row
// lock that could not be acquired within lock_timeout, or a deadlock the
// server resolved by killing this transaction. Both are transient.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateLockNotAvailable || pgErr.Code == sqlstateDeadlockDetected
	}
	return false
}

// IsDuplicateKey classifies unique-constraint violations.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateUniqueViolation
	}
	return false
}

// IsTimeout reports whether the operation overran its caller-imposed budget.
// Note a timed-out write is ambiguous: it may still have landed.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
