package goAuthWeb

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthWeb/access"
	"github.com/MrEthical07/goAuthWeb/csrf"
	internalaudit "github.com/MrEthical07/goAuthWeb/internal/audit"
	"github.com/MrEthical07/goAuthWeb/internal/flows"
	"github.com/MrEthical07/goAuthWeb/internal/rate"
	"github.com/MrEthical07/goAuthWeb/oauth"
	"github.com/MrEthical07/goAuthWeb/session"
	"go.uber.org/zap"
)

// Engine is the authentication orchestrator. It is immutable after
// [Builder.Build] and safe for concurrent use.
type Engine struct {
	config Config
	logger *zap.Logger

	policy       *access.Policy
	csrf         *csrf.Manager
	sessions     session.Provider
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics

	provider             AuthenticationProvider
	saver                ResultSaver
	successHandler       SuccessHandler
	logoutHandler        LogoutHandler
	logoutSuccessHandler LogoutSuccessHandler

	defaultApp *oauth.Application
}

var (
	flowMetrics = flows.Metrics{
		LoginSuccess:         int(MetricLoginSuccess),
		LoginFailure:         int(MetricLoginFailure),
		LoginRateLimited:     int(MetricLoginRateLimited),
		InvalidCredentials:   int(MetricInvalidCredentials),
		GrantExchangeFailure: int(MetricGrantExchangeFailure),
		ConfigurationError:   int(MetricConfigurationError),
		ResultSaved:          int(MetricResultSaved),
		ResultSaveFailure:    int(MetricResultSaveFailure),
		ResultCleared:        int(MetricResultCleared),
		SessionInvalidated:   int(MetricSessionInvalidated),
		Logout:               int(MetricLogout),
		GrantLatency:         int(MetricGrantExchangeLatency),
	}
	flowEvents = flows.Events{
		LoginSuccess:        auditEventLoginSuccess,
		LoginFailure:        auditEventLoginFailure,
		LoginRateLimited:    auditEventLoginRateLimited,
		GrantExchangeFailed: auditEventGrantExchangeFailed,
		Logout:              auditEventLogout,
	}
	flowErrors = flows.Errors{
		EngineNotReady:            ErrEngineNotReady,
		InvalidCredentials:        ErrInvalidCredentials,
		LoginRateLimited:          ErrLoginRateLimited,
		Configuration:             ErrConfiguration,
		SessionPersistFailed:      ErrSessionPersistFailed,
		SessionInvalidationFailed: ErrSessionInvalidationFailed,
	}
)

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the engine's logger for collaborators that log alongside it.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

/*
====================================
AUTHENTICATION
====================================
*/

// Authenticate verifies attempt through the configured provider.
//
// Empty credentials fail with [ErrInvalidCredentials] without reaching the
// provider. A throttled login fails with [ErrLoginRateLimited]. Provider
// errors are returned unchanged so errors.Is matches both the root and the
// oauth sentinels.
func (e *Engine) Authenticate(ctx context.Context, attempt LoginAttempt) (*AuthenticationResult, error) {
	if e == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	if attempt.Application != nil {
		ctx = WithApplication(ctx, attempt.Application)
	}
	application := e.applicationHref(ctx, attempt.Application)

	deps := flows.AuthenticateDeps[*AuthenticationResult]{
		Application: application,
		Provider:    e.provider.Name(),
		Provide: func(ctx context.Context) (*AuthenticationResult, error) {
			return e.provider.Authenticate(ctx, attempt)
		},
		IsRateLimited: func(err error) bool { return errors.Is(err, rate.ErrRateLimited) },
		Observers:     e.observers(),
		Metrics:       flowMetrics,
		Events:        flowEvents,
		Errors:        flowErrors,
	}
	if e.rateLimiter != nil {
		ip := clientIPFromContext(ctx)
		deps.CheckLoginRate = func(ctx context.Context, application, login string) error {
			return e.rateLimiter.CheckLogin(ctx, application, login, ip)
		}
		deps.IncrementLoginRate = func(ctx context.Context, application, login string) error {
			return e.rateLimiter.IncrementLogin(ctx, application, login, ip)
		}
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	result, err := flows.RunAuthenticate(ctx, attempt.Login, attempt.Password, deps)
	fields := []zap.Field{
		zap.String("login", attempt.Login),
		zap.String("provider", deps.Provider),
		zap.String("application", application),
		zap.String("request_id", RequestIDFromContext(ctx)),
	}
	if err != nil {
		e.logger.Warn("authentication failed",
			append(fields, zap.String("code", string(auditErrorCode(err))), zap.Error(err))...)
		return nil, err
	}
	e.logger.Info("authentication succeeded", fields...)
	return result, nil
}

// Login authenticates attempt and persists the result in the session held
// by ctx.
//
// When CSRF protection is enabled the session token is ensured before
// anything is persisted. A successful authentication moves the session to a
// new id before the result is saved. On failure nothing is persisted. A persist failure
// is rolled back and reported as [ErrSessionPersistFailed]. On success the
// [SuccessHandler] writes the response.
func (e *Engine) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, attempt LoginAttempt) (*AuthenticationResult, error) {
	if e == nil || e.saver == nil {
		return nil, ErrEngineNotReady
	}
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrSessionRequired
	}

	deps := flows.LoginDeps[*AuthenticationResult]{
		Authenticate: func(ctx context.Context) (*AuthenticationResult, error) {
			return e.Authenticate(ctx, attempt)
		},
		Regenerate: sess.Regenerate,
		Persist: func(ctx context.Context, result *AuthenticationResult) error {
			return e.saver.Set(ctx, w, r, result)
		},
		Clear: func(ctx context.Context) error {
			return e.saver.Clear(ctx, w, r)
		},
		OnSuccess: func(ctx context.Context, result *AuthenticationResult) error {
			if e.successHandler == nil {
				return nil
			}
			return e.successHandler.OnAuthenticationSuccess(ctx, w, r, result)
		},
		Observers: e.observers(),
		Metrics:   flowMetrics,
		Errors:    flowErrors,
	}
	if e.csrf.Enabled() {
		deps.EnsureCSRF = func(ctx context.Context) error {
			_, err := e.ensureCSRFToken(ctx, sess)
			return err
		}
	}

	result, err := flows.RunLogin(ctx, deps)
	if err != nil && errors.Is(err, ErrSessionPersistFailed) {
		e.logger.Error("authentication result not persisted",
			zap.String("login", attempt.Login),
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Error(err),
		)
	}
	return result, err
}

// Logout clears the persisted result, then invalidates the session when
// configured to, then runs the [LogoutSuccessHandler]. A clear failure
// aborts before invalidation with [ErrSessionInvalidationFailed].
func (e *Engine) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if e == nil || e.logoutHandler == nil {
		return ErrEngineNotReady
	}

	login := ""
	if e.saver != nil {
		if p, err := e.saver.Get(ctx, r); err == nil {
			login = p.Login
		}
	}
	sess, hasSession := session.FromContext(ctx)

	err := flows.RunLogout(ctx, flows.LogoutDeps{
		Login:             login,
		InvalidateSession: e.config.Logout.InvalidateSession,
		Clear: func(ctx context.Context) error {
			return e.logoutHandler.Logout(ctx, w, r)
		},
		Invalidate: func(ctx context.Context) error {
			if !hasSession {
				return nil
			}
			return sess.Invalidate(ctx)
		},
		OnSuccess: func(ctx context.Context) error {
			if e.logoutSuccessHandler == nil {
				return nil
			}
			return e.logoutSuccessHandler.OnLogoutSuccess(ctx, w, r)
		},
		Observers: e.observers(),
		Metrics:   flowMetrics,
		Events:    flowEvents,
		Errors:    flowErrors,
	})
	if err != nil {
		e.logger.Error("logout failed",
			zap.String("login", login),
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Error(err),
		)
		return err
	}
	e.logger.Info("logout", zap.String("login", login), zap.String("request_id", RequestIDFromContext(ctx)))
	return nil
}

// CurrentPrincipal returns the stored principal or [ErrResultNotFound].
func (e *Engine) CurrentPrincipal(ctx context.Context, r *http.Request) (*Principal, error) {
	if e == nil || e.saver == nil {
		return nil, ErrEngineNotReady
	}
	return e.saver.Get(ctx, r)
}

/*
====================================
CSRF
====================================
*/

// CSRFEnabled reports whether unsafe requests must carry a token.
func (e *Engine) CSRFEnabled() bool {
	return e != nil && e.csrf.Enabled()
}

// CSRF returns the token manager.
func (e *Engine) CSRF() *csrf.Manager {
	return e.csrf
}

// CSRFToken returns the session's token, creating it on first use.
func (e *Engine) CSRFToken(ctx context.Context) (csrf.Token, error) {
	if !e.CSRFEnabled() {
		return csrf.Token{}, csrf.ErrDisabled
	}
	sess, ok := session.FromContext(ctx)
	if !ok {
		return csrf.Token{}, ErrSessionRequired
	}
	return e.ensureCSRFToken(ctx, sess)
}

// ValidateCSRF checks the token submitted with r against the session's.
// Failures match [ErrCsrfValidationFailed] and are counted and audited. It
// is a no-op when protection is disabled.
func (e *Engine) ValidateCSRF(ctx context.Context, r *http.Request) error {
	if !e.CSRFEnabled() {
		return nil
	}

	var store csrf.AttributeStore
	if sess, ok := session.FromContext(ctx); ok {
		store = sess
	}
	err := e.csrf.ValidateToken(ctx, store, e.csrf.TokenFromRequest(r))
	if err == nil {
		return nil
	}

	e.metricInc(MetricCSRFRejected)
	path := ""
	if r != nil && r.URL != nil {
		path = r.URL.Path
	}
	e.emitAudit(ctx, auditEventCSRFRejected, false, "", err, func() map[string]string {
		return map[string]string{"path": path}
	})
	e.logger.Warn("csrf validation failed",
		zap.String("path", path),
		zap.String("request_id", RequestIDFromContext(ctx)),
	)
	return err
}

func (e *Engine) ensureCSRFToken(ctx context.Context, store csrf.AttributeStore) (csrf.Token, error) {
	tok, ok, err := e.csrf.LoadToken(ctx, store)
	if err != nil {
		return csrf.Token{}, err
	}
	if ok {
		return tok, nil
	}
	tok, err = e.csrf.GenerateToken(ctx, store)
	if err != nil {
		return csrf.Token{}, err
	}
	e.metricInc(MetricCSRFTokenIssued)
	return tok, nil
}

/*
====================================
ACCESS CONTROL
====================================
*/

// Decide classifies a request path against the access policy.
func (e *Engine) Decide(path string) access.Decision {
	return e.policy.Decide(path)
}

// Policy returns the compiled access policy.
func (e *Engine) Policy() *access.Policy {
	return e.policy
}

// Route returns the named functional route. Disabled routes are returned
// with Enabled=false.
func (e *Engine) Route(name string) (access.Route, bool) {
	return e.policy.Route(name)
}

// SessionMiddleware attaches a session to every request passing through it.
func (e *Engine) SessionMiddleware(next http.Handler) http.Handler {
	return e.sessions.Middleware(next)
}

// RecordChallenge counts and audits a protected request that arrived
// without a principal.
func (e *Engine) RecordChallenge(ctx context.Context, r *http.Request) {
	e.metricInc(MetricAccessChallenged)
	path := ""
	if r != nil && r.URL != nil {
		path = r.URL.Path
	}
	e.emitAudit(ctx, auditEventAccessDenied, false, "", ErrResultNotFound, func() map[string]string {
		return map[string]string{"path": path}
	})
}

// Ping measures a round trip to the session store. Engines built over a
// non-Redis session provider report zero.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, nil
	}
	return e.sessionStore.Ping(ctx)
}

/*
====================================
HELPERS
====================================
*/

func (e *Engine) observers() flows.Observers {
	return flows.Observers{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		Observe: func(id int, d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricID(id), d)
			}
		},
		EmitAudit: e.emitAudit,
		Warn: func(msg string, err error) {
			e.logger.Warn(msg, zap.Error(err))
		},
	}
}

func (e *Engine) providerName() string {
	if e.provider == nil {
		return ""
	}
	return e.provider.Name()
}

func (e *Engine) applicationHref(ctx context.Context, explicit *oauth.Application) string {
	app := resolveApplication(ctx, explicit, e.defaultApp)
	if app == nil {
		return ""
	}
	return app.Href
}
