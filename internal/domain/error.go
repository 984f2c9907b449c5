package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Access-code lifecycle errors
	ErrUserNotFound         = errors.New("user not found")
	ErrCodeNotFound         = errors.New("access code not found")
	ErrCodeExpired          = errors.New("access code expired")
	ErrCodeBlocked          = errors.New("access code blocked")
	ErrCodeAlreadyUsed      = errors.New("access code already used")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrInvalidDurationDays  = errors.New("invalid duration days")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
