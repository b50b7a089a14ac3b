package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/MrEthical07/goAuthWeb/password"
	"go.uber.org/zap"
)

// LocalProviderName identifies results produced by [Local].
const LocalProviderName = "local"

var (
	// ErrAccountNotFound is returned by an [AccountStore] for unknown logins.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDisabled is joined with goAuthWeb.ErrInvalidCredentials for disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")
)

// Account is a locally stored credential.
type Account struct {
	Login        string
	PasswordHash string
	Href         string
	Disabled     bool
}

// AccountStore looks up accounts by login. Implementations return
// [ErrAccountNotFound] when no account matches.
type AccountStore interface {
	FindByLogin(ctx context.Context, login string) (Account, error)
}

// MemoryAccountStore is an in-memory [AccountStore]. Logins match
// case-insensitively.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryAccountStore(accounts ...Account) *MemoryAccountStore {
	s := &MemoryAccountStore{accounts: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		s.Put(a)
	}
	return s
}

// Put adds or replaces an account.
func (s *MemoryAccountStore) Put(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[normalizeLogin(a.Login)] = a
}

func (s *MemoryAccountStore) FindByLogin(_ context.Context, login string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[normalizeLogin(login)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// Option configures a [Local] provider.
type Option func(*Local)

// WithLogger describes the withlogger operation and its observable behavior.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the authentication timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

// Local authenticates against an [AccountStore] of Argon2id hashes.
type Local struct {
	store  AccountStore
	hasher password.Hasher
	logger *zap.Logger
	now    func() time.Time
}

// NewLocal describes the newlocal operation and its observable behavior.
//
// NewLocal may return an error when input validation fails.
func NewLocal(store AccountStore, hasher password.Hasher, opts ...Option) (*Local, error) {
	if store == nil {
		return nil, errors.New("account store required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher required")
	}
	l := &Local{store: store, hasher: hasher, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

func (l *Local) Name() string {
	return LocalProviderName
}

// Authenticate verifies attempt. Unknown logins still pay for one hash
// comparison so response time does not reveal which logins exist.
func (l *Local) Authenticate(ctx context.Context, attempt goAuthWeb.LoginAttempt) (*goAuthWeb.AuthenticationResult, error) {
	if attempt.Login == "" || attempt.Password == "" {
		return nil, goAuthWeb.ErrInvalidCredentials
	}

	acct, err := l.store.FindByLogin(ctx, attempt.Login)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			l.hasher.VerifyDummy(attempt.Password)
			return nil, goAuthWeb.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	ok, err := l.hasher.Verify(attempt.Password, acct.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, goAuthWeb.ErrInvalidCredentials
		}
		l.logger.Error("stored password hash unusable", zap.String("login", acct.Login), zap.Error(err))
		return nil, fmt.Errorf("%w: stored password hash unusable", goAuthWeb.ErrConfiguration)
	}
	if !ok {
		return nil, goAuthWeb.ErrInvalidCredentials
	}
	if acct.Disabled {
		return nil, fmt.Errorf("%w: %w", goAuthWeb.ErrInvalidCredentials, ErrAccountDisabled)
	}

	application := ""
	if attempt.Application != nil {
		application = attempt.Application.Href
	} else if app, ok := goAuthWeb.ApplicationFromContext(ctx); ok {
		application = app.Href
	}

	return goAuthWeb.NewAuthenticationResult(acct.Login, LocalProviderName, application, nil, l.now()), nil
}
