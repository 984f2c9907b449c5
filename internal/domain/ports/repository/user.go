package repository

import (
	"context"

	"exam-access-backend/internal/domain/model"
)

// UserRepository is the port to the user directory. The entitlement core only
// needs existence lookups and display identity; account management lives
// elsewhere.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}
