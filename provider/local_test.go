package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/MrEthical07/goAuthWeb/oauth"
	"github.com/MrEthical07/goAuthWeb/password"
	"github.com/stretchr/testify/require"
)

type countingHasher struct {
	password.Hasher
	dummies int
}

func (c *countingHasher) VerifyDummy(pw string) {
	c.dummies++
	c.Hasher.VerifyDummy(pw)
}

func newTestHasher(t *testing.T) password.Hasher {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return h
}

func newTestLocal(t *testing.T) (*Local, *countingHasher, *MemoryAccountStore) {
	t.Helper()
	hasher := &countingHasher{Hasher: newTestHasher(t)}
	hash, err := hasher.Hash("correct-horse-battery")
	require.NoError(t, err)

	store := NewMemoryAccountStore(
		Account{Login: "Alice", PasswordHash: hash, Href: "local:alice"},
		Account{Login: "carol", PasswordHash: hash, Disabled: true},
		Account{Login: "mallory", PasswordHash: "not-a-phc-string"},
	)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	local, err := NewLocal(store, hasher, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return local, hasher, store
}

func TestLocalAuthenticateSuccess(t *testing.T) {
	local, _, _ := newTestLocal(t)
	ctx := goAuthWeb.WithApplication(context.Background(), &oauth.Application{Href: "https://id.example.com/v1/applications/1"})

	res, err := local.Authenticate(ctx, goAuthWeb.LoginAttempt{Login: "alice", Password: "correct-horse-battery"})
	require.NoError(t, err)
	require.Equal(t, "Alice", res.Login())
	require.Equal(t, LocalProviderName, res.Provider())
	require.Equal(t, "https://id.example.com/v1/applications/1", res.Application())
	require.Nil(t, res.Grant())

	p := res.Principal()
	require.True(t, p.ExpiresAt.IsZero())
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), p.AuthenticatedAt)
}

func TestLocalRejectsWrongPassword(t *testing.T) {
	local, _, _ := newTestLocal(t)
	_, err := local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "alice", Password: "wrong-password-xx"})
	require.ErrorIs(t, err, goAuthWeb.ErrInvalidCredentials)
}

func TestLocalUnknownLoginBurnsDummyVerify(t *testing.T) {
	local, hasher, _ := newTestLocal(t)
	_, err := local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "nobody", Password: "whatever-password"})
	require.ErrorIs(t, err, goAuthWeb.ErrInvalidCredentials)
	require.Equal(t, 1, hasher.dummies)
}

func TestLocalDisabledAccount(t *testing.T) {
	local, _, _ := newTestLocal(t)
	_, err := local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "carol", Password: "correct-horse-battery"})
	require.ErrorIs(t, err, goAuthWeb.ErrInvalidCredentials)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLocalCorruptHashIsConfigurationError(t *testing.T) {
	local, _, _ := newTestLocal(t)
	_, err := local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "mallory", Password: "correct-horse-battery"})
	require.ErrorIs(t, err, goAuthWeb.ErrConfiguration)
	require.False(t, errors.Is(err, goAuthWeb.ErrInvalidCredentials))
}

func TestLocalEmptyCredentials(t *testing.T) {
	local, hasher, _ := newTestLocal(t)
	_, err := local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "alice"})
	require.ErrorIs(t, err, goAuthWeb.ErrInvalidCredentials)
	require.Zero(t, hasher.dummies)
}

type failingStore struct{}

func (failingStore) FindByLogin(context.Context, string) (Account, error) {
	return Account{}, errors.New("db down")
}

func TestLocalStoreFailureIsNotInvalidCredentials(t *testing.T) {
	local, err := NewLocal(failingStore{}, newTestHasher(t))
	require.NoError(t, err)
	_, err = local.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "alice", Password: "correct-horse-battery"})
	require.Error(t, err)
	require.False(t, errors.Is(err, goAuthWeb.ErrInvalidCredentials))
}

func TestLocalPlugsIntoEngine(t *testing.T) {
	local, _, _ := newTestLocal(t)
	engine, err := goAuthWeb.New().
		WithSessionProvider(nopSessions{}).
		WithAuthenticationProvider(local).
		WithMetricsEnabled(true).
		Build()
	require.NoError(t, err)
	defer engine.Close()

	res, err := engine.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "alice", Password: "correct-horse-battery"})
	require.NoError(t, err)
	require.Equal(t, LocalProviderName, res.Provider())

	_, err = engine.Authenticate(context.Background(), goAuthWeb.LoginAttempt{Login: "alice", Password: "nope-nope-nope"})
	require.ErrorIs(t, err, goAuthWeb.ErrInvalidCredentials)

	snap := engine.MetricsSnapshot()
	require.EqualValues(t, 1, snap.Counters[goAuthWeb.MetricLoginSuccess])
	require.EqualValues(t, 1, snap.Counters[goAuthWeb.MetricInvalidCredentials])
}
