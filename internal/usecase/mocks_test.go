package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"exam-access-backend/internal/domain"
	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/adapter"
	"exam-access-backend/internal/domain/ports/repository"
)

// --- In-memory user repository ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.User, error) {
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

func (r *memUserRepo) CountUsers(_ context.Context, _ repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// --- In-memory access-code repository ---

// memCodeRepo mirrors the store's concurrency contract: MarkUsed is a
// compare-and-set under the lock, so racing redeemers see exactly one win.
type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.AccessCode // by id

	// error injections
	insertErr    error
	markUsedErr  error
	incrementErr error
	findErr      error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: make(map[string]*model.AccessCode)}
}

func (r *memCodeRepo) Insert(_ context.Context, _ repository.Tx, c *model.AccessCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, existing := range r.codes {
		if existing.Code == c.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	r.codes[c.ID] = &cp
	return nil
}

func (r *memCodeRepo) FindByCodeAndUser(_ context.Context, _ repository.Tx, code, userID string) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, c := range r.codes {
		if c.Code == code && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCodeNotFound
}

func (r *memCodeRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCodeRepo) MarkUsed(_ context.Context, _ repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markUsedErr != nil {
		return r.markUsedErr
	}
	c, ok := r.codes[id]
	if !ok || c.IsUsed {
		return domain.ErrCodeAlreadyUsed
	}
	c.IsUsed = true
	t := at
	c.UsedAt = &t
	c.UpdatedAt = at
	return nil
}

func (r *memCodeRepo) IncrementAttempts(_ context.Context, _ repository.Tx, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return r.incrementErr
	}
	for _, c := range r.codes {
		if c.Code == code {
			c.AttemptCount++
			return nil
		}
	}
	return nil
}

func (r *memCodeRepo) SetBlocked(_ context.Context, _ repository.Tx, id string, blocked bool, until *time.Time) (*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	c.IsBlocked = blocked
	c.BlockedUntil = until
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (r *memCodeRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[id]; !ok {
		return domain.ErrCodeNotFound
	}
	delete(r.codes, id)
	return nil
}

func (r *memCodeRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string, now time.Time) ([]*model.AccessCode, error) {
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

func (r *memCodeRepo) FindExpiringBefore(_ context.Context, _ repository.Tx, now, deadline time.Time) ([]*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessCode
	for _, c := range r.codes {
		if !c.IsUsed && !c.IsBlocked && c.ExpiresAt.After(now) && !c.ExpiresAt.After(deadline) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCodeRepo) CountExpiredUnused(_ context.Context, _ repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if !c.IsUsed && !c.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *memCodeRepo) matches(c *model.AccessCode, f repository.ListFilter) bool {
	if f.UserID != nil && c.UserID != *f.UserID {
		return false
	}
	if f.IsUsed != nil && c.IsUsed != *f.IsUsed {
		return false
	}
	if f.IsBlocked != nil && c.IsBlocked != *f.IsBlocked {
		return false
	}
	return true
}

func (r *memCodeRepo) List(_ context.Context, _ repository.Tx, f repository.ListFilter, offset, limit int) ([]*repository.AccessCodeListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.AccessCode
	for _, c := range r.codes {
		if r.matches(c, f) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	var out []*repository.AccessCodeListing
	for _, c := range all[offset:end] {
		cp := *c
		out = append(out, &repository.AccessCodeListing{
			AccessCode:    cp,
			OwnerUsername: "user-" + c.UserID,
		})
	}
	return out, nil
}

func (r *memCodeRepo) Count(_ context.Context, _ repository.Tx, f repository.ListFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if r.matches(c, f) {
			n++
		}
	}
	return n, nil
}

// attemptCount reads the counter directly for assertions.
func (r *memCodeRepo) attemptCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Code == code {
			return c.AttemptCount
		}
	}
	return -1
}

// --- Transaction manager mock ---

// memTxManager counts transactions; the in-memory repos have no real
// transactional state, so the callback just runs inline.
type memTxManager struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.calls++
	failing := m.err
	m.mu.Unlock()
	if failing != nil {
		return failing
	}
	return fn(ctx, repository.NoTX)
}

// --- Notifier mock ---

type memNotifier struct {
	mu   sync.Mutex
	sent []adapter.ExpiryReminder
	err  error
}

func (n *memNotifier) NotifyExpiring(_ context.Context, r adapter.ExpiryReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, r)
	return nil
}
