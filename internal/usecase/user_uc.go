package usecase

import (
	"context"

	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
)

// UserUseCase fronts the user directory. The wider platform owns accounts;
// this service only needs registration for seeding and lookups for wiring
// codes to identities.
type UserUseCase struct {
	users repository.UserRepository
}

func NewUserUseCase(users repository.UserRepository) *UserUseCase {
	return &UserUseCase{users: users}
}

func (uc *UserUseCase) Register(ctx context.Context, username string, role model.Role) (*model.User, error) {
	u, err := model.NewUser("", username, role)
	if err != nil {
		return nil, err
	}
	if err := uc.users.Save(ctx, repository.NoTX, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *UserUseCase) Get(ctx context.Context, id string) (*model.User, error) {
	return uc.users.FindByID(ctx, repository.NoTX, id)
}

func (uc *UserUseCase) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return uc.users.FindByUsername(ctx, repository.NoTX, username)
}

func (uc *UserUseCase) Count(ctx context.Context) (int, error) {
	return uc.users.CountUsers(ctx, repository.NoTX)
}
