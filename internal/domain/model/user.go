package model

import (
	"time"

	"github.com/google/uuid"

	"exam-access-backend/internal/domain"
)

// Role gates access to privileged code-management operations.
type Role string

const (
	RoleStudent Role = "student"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Privileged reports whether the role may issue, list, block, or delete codes.
func (r Role) Privileged() bool { return r == RoleManager || r == RoleAdmin }

// User is the minimal identity the entitlement subsystem needs: codes are
// issued against a user and listings join back to usernames for display.
type User struct {
	ID           string
	Username     string
	Role         Role
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewUser(id, username string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch role {
	case RoleStudent, RoleManager, RoleAdmin:
	default:
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		Username:     username,
		Role:         role,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
