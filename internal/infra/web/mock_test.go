package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"exam-access-backend/internal/config"
	"exam-access-backend/internal/domain"
	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
	red "exam-access-backend/internal/infra/redis"
	"exam-access-backend/internal/retry"
	"exam-access-backend/internal/usecase"
)

// fakeRedis is an in-process counter store standing in for the rate-limit
// backend. Expiry is ignored; tests only exercise single windows.
type fakeRedis struct {
	mu       sync.Mutex
	counters map[string]int64
	failing  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counters: make(map[string]int64)}
}

var errRedisDown = errors.New("connection refused")

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (f *fakeRedis) Get(context.Context, string) (string, error) { return "", domain.ErrNotFound }

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errRedisDown
	}
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeRedis) Expire(context.Context, string, time.Duration) error { return nil }

func (f *fakeRedis) Del(context.Context, ...string) error { return nil }

func (f *fakeRedis) FlushDB(context.Context) error { return nil }

func (f *fakeRedis) Close() error { return nil }

// stubUserRepo holds a fixed user set.
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (r *stubUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubUserRepo) CountUsers(_ context.Context, _ repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// stubCodeRepo is a mutex-guarded map with the store's conditional-update
// semantics on MarkUsed.
type stubCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.AccessCode
}

func (r *stubCodeRepo) Insert(_ context.Context, _ repository.Tx, c *model.AccessCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.codes {
		if existing.Code == c.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	r.codes[c.ID] = &cp
	return nil
}

func (r *stubCodeRepo) FindByCodeAndUser(_ context.Context, _ repository.Tx, code, userID string) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCodeNotFound
}

func (r *stubCodeRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCodeRepo) MarkUsed(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || c.IsUsed {
		return domain.ErrCodeAlreadyUsed
	}
	c.IsUsed = true
	t := at
	c.UsedAt = &t
	return nil
}

func (r *stubCodeRepo) IncrementAttempts(_ context.Context, _ repository.Tx, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code {
			c.AttemptCount++
		}
	}
	return nil
}

func (r *stubCodeRepo) SetBlocked(_ context.Context, _ repository.Tx, id string, blocked bool, until *time.Time) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	c.IsBlocked = blocked
	c.BlockedUntil = until
	cp := *c
	return &cp, nil
}

func (r *stubCodeRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[id]; !ok {
		return domain.ErrCodeNotFound
	}
	delete(r.codes, id)
	return nil
}

func (r *stubCodeRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string, now time.Time) ([]*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessCode
	for _, c := range r.codes {
		if c.UserID == userID && !c.IsUsed && c.ExpiresAt.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubCodeRepo) FindExpiringBefore(_ context.Context, _ repository.Tx, now, deadline time.Time) ([]*model.AccessCode, error) {
	return nil, nil
}

func (r *stubCodeRepo) CountExpiredUnused(_ context.Context, _ repository.Tx, now time.Time) (int, error) {
	return 0, nil
}

func (r *stubCodeRepo) List(_ context.Context, _ repository.Tx, f repository.ListFilter, offset, limit int) ([]*repository.AccessCodeListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.AccessCodeListing
	for _, c := range r.codes {
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		if f.IsUsed != nil && c.IsUsed != *f.IsUsed {
			continue
		}
		if f.IsBlocked != nil && c.IsBlocked != *f.IsBlocked {
			continue
		}
		cp := *c
		out = append(out, &repository.AccessCodeListing{AccessCode: cp, OwnerUsername: "owner"})
	}
	if offset >= len(out) {
		return nil, nil
	}
	if end := offset + limit; end < len(out) {
		out = out[offset:end]
	} else {
		out = out[offset:]
	}
	return out, nil
}

func (r *stubCodeRepo) Count(_ context.Context, _ repository.Tx, f repository.ListFilter) (int, error) {
	rows, err := r.List(context.Background(), repository.NoTX, f, 0, 1<<30)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// testHarness bundles a routed server with the identities and stores behind
// it.
type testHarness struct {
	server  *Server
	codes   *stubCodeRepo
	users   *stubUserRepo
	redis   *fakeRedis
	auth    *AuthManager
	manager *model.User
	student *model.User
}

func newHarness(t *testing.T, limits config.LimitsConfig) *testHarness {
	t.Helper()

	codes := &stubCodeRepo{codes: make(map[string]*model.AccessCode)}
	users := &stubUserRepo{users: make(map[string]*model.User)}

	manager, err := model.NewUser("", "mgr", model.RoleManager)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	student, err := model.NewUser("", "stu", model.RoleStudent)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	_ = users.Save(context.Background(), repository.NoTX, manager)
	_ = users.Save(context.Background(), repository.NoTX, student)

	log := zerolog.Nop()
	policy := retry.Policy{MaxRetries: 3, Delay: time.Millisecond}
	codeUC := usecase.NewAccessCodeUseCase(codes, users, policy, time.Second, &log)
	queryUC := usecase.NewQueryUseCase(codes, &log)

	fr := newFakeRedis()
	auth := NewAuthManager("test-secret", false, "", time.Hour)

	return &testHarness{
		server:  NewServer(codeUC, queryUC, auth, red.NewRateLimiter(fr), limits, &log),
		codes:   codes,
		users:   users,
		redis:   fr,
		auth:    auth,
		manager: manager,
		student: student,
	}
}

func (h *testHarness) token(t *testing.T, u *model.User) string {
	t.Helper()
	tok, err := h.auth.Mint(u.ID, u.Role)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tok
}

func defaultLimits() config.LimitsConfig {
	return config.LimitsConfig{
		CreatePerMinute:   100,
		ValidatePerWindow: 100,
		ValidateWindow:    15 * time.Minute,
	}
}
