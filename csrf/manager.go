package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthWeb/internal"
)

const (
	// DefaultAttributeName is the session attribute holding the token.
	DefaultAttributeName = "csrfToken"
	// DefaultParameterName is the form parameter carrying the submitted token.
	DefaultParameterName = "csrfToken"
	// DefaultHeaderName is the header checked when the form parameter is absent.
	DefaultHeaderName = "X-CSRF-Token"

	defaultTokenBytes = 32
)

var (
	// ErrValidationFailed is returned when the submitted token is missing or does not match.
	ErrValidationFailed = errors.New("csrf validation failed")
	// ErrDisabled is returned by a manager built with Enabled=false.
	ErrDisabled = errors.New("csrf protection disabled")
	// ErrStoreRequired is returned when no session store is available.
	ErrStoreRequired = errors.New("csrf session store required")
)

// AttributeStore is the slice of a session the manager needs.
type AttributeStore interface {
	Attribute(ctx context.Context, name string) (string, bool, error)
	SetAttribute(ctx context.Context, name, value string) error
}

// Config controls token naming and size.
type Config struct {
	Enabled       bool
	AttributeName string
	ParameterName string
	HeaderName    string
	TokenBytes    int
}

// Token is the active token of a session plus the names needed to submit it.
type Token struct {
	Value         string
	AttributeName string
	ParameterName string
	HeaderName    string
}

// Manager issues and validates tokens. It is immutable and safe for concurrent use.
type Manager struct {
	cfg    Config
	random io.Reader
}

// NewManager fills unset names with the defaults and returns a manager.
func NewManager(cfg Config) *Manager {
	if strings.TrimSpace(cfg.AttributeName) == "" {
		cfg.AttributeName = DefaultAttributeName
	}
	if strings.TrimSpace(cfg.ParameterName) == "" {
		cfg.ParameterName = DefaultParameterName
	}
	if strings.TrimSpace(cfg.HeaderName) == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = defaultTokenBytes
	}
	return &Manager{cfg: cfg}
}

// Enabled reports whether CSRF protection is active.
func (m *Manager) Enabled() bool {
	return m != nil && m.cfg.Enabled
}

// Config returns a copy of the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// GenerateToken returns the session's token, creating and storing one first
// if the session has none. A session never holds more than one token.
func (m *Manager) GenerateToken(ctx context.Context, store AttributeStore) (Token, error) {
	if !m.Enabled() {
		return Token{}, ErrDisabled
	}
	if store == nil {
		return Token{}, ErrStoreRequired
	}

	existing, ok, err := store.Attribute(ctx, m.cfg.AttributeName)
	if err != nil {
		return Token{}, fmt.Errorf("load csrf token: %w", err)
	}
	if ok && existing != "" {
		return m.token(existing), nil
	}

	value, err := internal.RandomTokenFrom(m.random, m.cfg.TokenBytes)
	if err != nil {
		return Token{}, fmt.Errorf("generate csrf token: %w", err)
	}
	if err := store.SetAttribute(ctx, m.cfg.AttributeName, value); err != nil {
		return Token{}, fmt.Errorf("store csrf token: %w", err)
	}

	return m.token(value), nil
}

// LoadToken returns the session's token without creating one.
func (m *Manager) LoadToken(ctx context.Context, store AttributeStore) (Token, bool, error) {
	if !m.Enabled() {
		return Token{}, false, ErrDisabled
	}
	if store == nil {
		return Token{}, false, ErrStoreRequired
	}

	value, ok, err := store.Attribute(ctx, m.cfg.AttributeName)
	if err != nil {
		return Token{}, false, fmt.Errorf("load csrf token: %w", err)
	}
	if !ok || value == "" {
		return Token{}, false, nil
	}
	return m.token(value), true, nil
}

// ValidateToken succeeds only when submitted is non-empty and equal to the
// session's stored token. Every other outcome, including store errors, is
// reported as [ErrValidationFailed].
func (m *Manager) ValidateToken(ctx context.Context, store AttributeStore, submitted string) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if store == nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrStoreRequired)
	}
	if submitted == "" {
		return ErrValidationFailed
	}

	stored, ok, err := store.Attribute(ctx, m.cfg.AttributeName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if !ok || stored == "" {
		return ErrValidationFailed
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return ErrValidationFailed
	}
	return nil
}

// TokenFromRequest returns the submitted token: the form parameter first,
// then the header.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := r.PostFormValue(m.cfg.ParameterName); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(m.cfg.HeaderName))
}

func (m *Manager) token(value string) Token {
	return Token{
		Value:         value,
		AttributeName: m.cfg.AttributeName,
		ParameterName: m.cfg.ParameterName,
		HeaderName:    m.cfg.HeaderName,
	}
}
