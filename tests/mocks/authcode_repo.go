package mocks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
)

// AuthCodeRepo is an in-memory auth code store with failure injection and
// call counters.
type AuthCodeRepo struct {
	mu        sync.Mutex
	db        map[authcode.ID]*authcode.AuthCode
	findErr   error
	insertErr error
	pingErr   error
	// beforeConditionalInsert runs under the lock right before the
	// conditional insert checks for live codes.
	beforeConditionalInsert func()

	findCalls   int
	insertCalls int
}

func NewAuthCodeRepo() *AuthCodeRepo {
	return &AuthCodeRepo{
		db: make(map[authcode.ID]*authcode.AuthCode),
	}
}

func (r *AuthCodeRepo) FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.findLiveLocked(filter), nil
}

func (r *AuthCodeRepo) Insert(ctx context.Context, a *authcode.AuthCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertCalls++
	return r.insertLocked(a)
}

func (r *AuthCodeRepo) InsertIfNoneLive(ctx context.Context, a *authcode.AuthCode, now time.Time) ([]*authcode.AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertCalls++
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	if r.beforeConditionalInsert != nil {
		r.beforeConditionalInsert()
	}

	live := r.findLiveLocked(authcode.LiveFilter{SiteID: a.SiteID(), UserID: a.UserID(), Now: now})
	if len(live) > 0 {
		return live, nil
	}
	return nil, r.insertLocked(a)
}

func (r *AuthCodeRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.db {
		if !a.ExpiresAt().After(before) {
			delete(r.db, id)
			n++
		}
	}
	return n, nil
}

func (r *AuthCodeRepo) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pingErr
}

func (r *AuthCodeRepo) findLiveLocked(filter authcode.LiveFilter) []*authcode.AuthCode {
	found := make([]*authcode.AuthCode, 0)
	for _, a := range r.db {
		if filter.Keep(a) {
			found = append(found, a)
		}
	}
	return found
}

func (r *AuthCodeRepo) insertLocked(a *authcode.AuthCode) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if a == nil {
		return errors.New("auth code cannot be nil")
	}
	if _, exists := r.db[a.ID()]; exists {
		return errors.New("duplicate auth code id")
	}
	r.db[a.ID()] = a
	return nil
}

func (r *AuthCodeRepo) SetFindError(err error) *AuthCodeRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findErr = err
	return r
}

func (r *AuthCodeRepo) SetInsertError(err error) *AuthCodeRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertErr = err
	return r
}

func (r *AuthCodeRepo) SetPingError(err error) *AuthCodeRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingErr = err
	return r
}

// OnConditionalInsert registers fn to run inside the conditional insert,
// which lets tests simulate a concurrent writer.
func (r *AuthCodeRepo) OnConditionalInsert(fn func(seed func(*authcode.AuthCode))) *AuthCodeRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeConditionalInsert = func() {
		fn(func(a *authcode.AuthCode) { r.db[a.ID()] = a })
	}
	return r
}

func (r *AuthCodeRepo) SeedAuthCode(t *testing.T, codes ...*authcode.AuthCode) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range codes {
		r.db[a.ID()] = a
	}
}

func (r *AuthCodeRepo) All() []*authcode.AuthCode {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*authcode.AuthCode, 0, len(r.db))
	for _, a := range r.db {
		all = append(all, a)
	}
	return all
}

func (r *AuthCodeRepo) FindCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

func (r *AuthCodeRepo) InsertCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertCalls
}

func (r *AuthCodeRepo) AssertCount(t *testing.T, expected int) *AuthCodeRepo {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	assert.Len(t, r.db, expected, "expected %d stored auth codes, got %d", expected, len(r.db))
	return r
}

func (r *AuthCodeRepo) AssertAuthCodeExists(t *testing.T, id authcode.ID) *authcode.Assertion {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.db[id]
	if !exists {
		t.Errorf("expected auth code with ID %s to exist, but it does not", id)
		return authcode.NewAssertion(authcode.Rehydrate(authcode.RehydrateArgs{}))
	}
	return authcode.NewAssertion(a)
}

// Plain strips the optional capabilities so handlers see a plain
// store.
func (r *AuthCodeRepo) Plain() PlainAuthCodeRepo {
	return PlainAuthCodeRepo{repo: r}
}

type PlainAuthCodeRepo struct {
	repo *AuthCodeRepo
}

func (p PlainAuthCodeRepo) FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error) {
	return p.repo.FindLive(ctx, filter)
}

func (p PlainAuthCodeRepo) Insert(ctx context.Context, a *authcode.AuthCode) error {
	return p.repo.Insert(ctx, a)
}
