package housekeeping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/tests/mocks"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type failingPurger struct{}

func (failingPurger) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("store down")
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPurger) DeleteExpired(context.Context, time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 0, nil
}

func (p *countingPurger) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func codeExpiringAt(t *testing.T, expires time.Time) *authcode.AuthCode {
	t.Helper()
	a, err := authcode.New(authcode.NewArgs{
		SiteID: "s",
		UserID: "u",
		Now:    expires.Add(-time.Minute),
		Policy: authcode.Policy{TTL: time.Minute},
	})
	require.NoError(t, err)
	return a
}

func TestService_Purge(t *testing.T) {
	repo := mocks.NewAuthCodeRepo()
	live := codeExpiringAt(t, baseTime.Add(time.Minute))
	recentlyExpired := codeExpiringAt(t, baseTime.Add(-time.Hour))
	longExpired := codeExpiringAt(t, baseTime.Add(-48*time.Hour))
	repo.SeedAuthCode(t, live, recentlyExpired, longExpired)

	s := NewService(Args{
		Purger:    repo,
		Retention: 24 * time.Hour,
		Now:       func() time.Time { return baseTime },
	})

	assert.Equal(t, int64(1), s.Purge(t.Context()))
	repo.AssertCount(t, 2)
	repo.AssertAuthCodeExists(t, live.ID())
	repo.AssertAuthCodeExists(t, recentlyExpired.ID())
}

func TestService_PurgeWithoutRetention(t *testing.T) {
	repo := mocks.NewAuthCodeRepo()
	repo.SeedAuthCode(t,
		codeExpiringAt(t, baseTime),
		codeExpiringAt(t, baseTime.Add(time.Second)),
	)

	s := NewService(Args{Purger: repo, Now: func() time.Time { return baseTime }})

	assert.Equal(t, int64(1), s.Purge(t.Context()))
	repo.AssertCount(t, 1)
}

func TestService_PurgeFailureIsLogged(t *testing.T) {
	s := NewService(Args{Purger: failingPurger{}})
	assert.Zero(t, s.Purge(t.Context()))
}

func TestService_StartStop(t *testing.T) {
	p := &countingPurger{}
	s := NewService(Args{Purger: p, Interval: 10 * time.Millisecond})

	s.Start()
	require.Eventually(t, func() bool { return p.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	calls := p.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, p.Calls(), "no purge runs after Stop")
}
