//go:build !integration

package postgres

import (
	"context"
	"time"

	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
	red "exam-access-backend/internal/infra/redis"
)

// --- Mocks for cache decorator tests ---

// mockInnerUserRepo mocks the database repository the user decorator wraps.
type mockInnerUserRepo struct {
	SaveFunc           func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	FindByUsernameFunc func(ctx context.Context, tx repository.Tx, username string) (*model.User, error)
	CountUsersFunc     func(ctx context.Context, tx repository.Tx) (int, error)
}

func (m *mockInnerUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	return m.SaveFunc(ctx, tx, u)
}
func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	return m.FindByUsernameFunc(ctx, tx, username)
}
func (m *mockInnerUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return m.CountUsersFunc(ctx, tx)
}

// mockRedisClient implements red.RedisClient with pluggable behavior.
type mockRedisClient struct {
	PingFunc    func(ctx context.Context) error
	SetFunc     func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetFunc     func(ctx context.Context, key string) (string, error)
	IncrFunc    func(ctx context.Context, key string) (int64, error)
	ExpireFunc  func(ctx context.Context, key string, expiration time.Duration) error
	DelFunc     func(ctx context.Context, keys ...string) error
	FlushDBFunc func(ctx context.Context) error
	CloseFunc   func() error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func (m *mockRedisClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}
func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, key, expiration)
	}
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}
func (m *mockRedisClient) FlushDB(ctx context.Context) error {
	if m.FlushDBFunc != nil {
		return m.FlushDBFunc(ctx)
	}
	return nil
}
func (m *mockRedisClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
