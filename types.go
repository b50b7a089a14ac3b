package goAuthWeb

import (
	"context"
	"io"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/goAuthWeb/internal/audit"
	"github.com/MrEthical07/goAuthWeb/oauth"
	"go.uber.org/zap"
)

// LoginAttempt carries one set of submitted credentials. It is never
// persisted and its String form omits the password.
type LoginAttempt struct {
	Login        string
	Password     string
	GrantType    oauth.GrantType
	AccountStore string
	Application  *oauth.Application
}

func (a LoginAttempt) String() string {
	return "LoginAttempt{Login:" + a.Login + " Password:[REDACTED]}"
}

// GoString keeps %#v from printing the password.
func (a LoginAttempt) GoString() string {
	return a.String()
}

// AuthenticationResult is the immutable outcome of a successful
// authentication. Grant is nil for providers that do not exchange tokens.
type AuthenticationResult struct {
	login           string
	provider        string
	application     string
	grant           *oauth.GrantResult
	authenticatedAt time.Time
}

// NewAuthenticationResult describes the newauthenticationresult operation and its observable behavior.
//
// NewAuthenticationResult is used by [AuthenticationProvider] implementations; the result cannot be changed afterwards.
func NewAuthenticationResult(login, provider, application string, grant *oauth.GrantResult, authenticatedAt time.Time) *AuthenticationResult {
	return &AuthenticationResult{
		login:           login,
		provider:        provider,
		application:     application,
		grant:           grant,
		authenticatedAt: authenticatedAt.UTC(),
	}
}

func (r *AuthenticationResult) Login() string              { return r.login }
func (r *AuthenticationResult) Provider() string           { return r.provider }
func (r *AuthenticationResult) Application() string        { return r.application }
func (r *AuthenticationResult) Grant() *oauth.GrantResult  { return r.grant }
func (r *AuthenticationResult) AuthenticatedAt() time.Time { return r.authenticatedAt }

// Principal projects the result into the form a [ResultSaver] persists. The
// access and refresh tokens themselves are never part of it.
func (r *AuthenticationResult) Principal() Principal {
	p := Principal{
		Login:           r.login,
		Provider:        r.provider,
		Application:     r.application,
		AuthenticatedAt: r.authenticatedAt,
	}
	if r.grant != nil {
		p.AccessTokenHref = r.grant.AccessTokenHref()
		p.TokenType = r.grant.TokenType()
		p.ExpiresAt = r.grant.ExpiresAt()
	}
	return p
}

func (r *AuthenticationResult) String() string {
	return "AuthenticationResult{Login:" + r.login + " Provider:" + r.provider + "}"
}

// Principal is the persisted authentication state of a session.
type Principal struct {
	Login           string    `json:"login"`
	Provider        string    `json:"provider"`
	Application     string    `json:"application,omitempty"`
	AccessTokenHref string    `json:"access_token_href,omitempty"`
	TokenType       string    `json:"token_type,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// Expired reports whether the principal carries an expiry that is not after now.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// AuthenticationProvider verifies a login attempt.
//
// Implementations return an error matching [ErrInvalidCredentials] when the
// credentials are rejected, and [ErrConfiguration] when they cannot run.
type AuthenticationProvider interface {
	Name() string
	Authenticate(ctx context.Context, attempt LoginAttempt) (*AuthenticationResult, error)
}

// ResultSaver persists the authentication result across requests.
// Get returns [ErrResultNotFound] when nothing is stored.
type ResultSaver interface {
	Set(ctx context.Context, w http.ResponseWriter, r *http.Request, result *AuthenticationResult) error
	Get(ctx context.Context, r *http.Request) (*Principal, error)
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// SuccessHandler runs after the result has been persisted.
type SuccessHandler interface {
	OnAuthenticationSuccess(ctx context.Context, w http.ResponseWriter, r *http.Request, result *AuthenticationResult) error
}

// LogoutHandler removes the persisted result. It runs before the session is invalidated.
type LogoutHandler interface {
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// LogoutSuccessHandler runs after a completed logout.
type LogoutSuccessHandler interface {
	OnLogoutSuccess(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// AuditEvent is a structured audit record emitted by the engine.
//
// Events never carry passwords or tokens.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink is an [AuditSink] that logs events through zap.
type ZapSink = internalaudit.ZapSink

// MultiSink fans one event out to several sinks.
type MultiSink = internalaudit.MultiSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] logging under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
