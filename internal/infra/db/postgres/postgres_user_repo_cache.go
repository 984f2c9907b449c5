package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
	"exam-access-backend/internal/infra/metrics"
	red "exam-access-backend/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator is a read-through cache in front of the user repo.
// User identity is looked up on every code issue and every listing join, so
// the hot keys are worth keeping warm.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

// Save invalidates both lookup keys before writing through.
func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("user:id:%s", u.ID))
	_ = d.cache.Del(ctx, fmt.Sprintf("user:name:%s", u.Username))
	return d.inner.Save(ctx, tx, u)
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	key := fmt.Sprintf("user:id:%s", id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, user)
	return user, nil
}

func (d *userRepoCacheDecorator) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	key := fmt.Sprintf("user:name:%s", username)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, user)
	return user, nil
}

// warm sets both keys so a FindByID after FindByUsername still hits.
func (d *userRepoCacheDecorator) warm(ctx context.Context, user *model.User) {
	if user == nil {
		return
	}
	bytes, err := json.Marshal(user)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, fmt.Sprintf("user:id:%s", user.ID), bytes, d.ttl)
	_ = d.cache.Set(ctx, fmt.Sprintf("user:name:%s", user.Username), bytes, d.ttl)
}

// Counts are not cached; they feed admin stats, not the request path.
func (d *userRepoCacheDecorator) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountUsers(ctx, tx)
}
