package middleware

import (
	"net"
	"net/http"
	"path"
	"strings"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/MrEthical07/goAuthWeb/access"
	"github.com/MrEthical07/goAuthWeb/csrf"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is read for an incoming correlation id and echoed on the response.
const RequestIDHeader = "X-Request-ID"

// Option configures [Filter].
type Option func(*filter)

// WithClientIPFunc overrides how the client address is derived. The default
// uses the host part of RemoteAddr.
func WithClientIPFunc(fn func(*http.Request) string) Option {
	return func(f *filter) {
		if fn != nil {
			f.clientIP = fn
		}
	}
}

// WithLoginFailureLocation overrides where failed logins are redirected.
// The default is "<login URI>?error".
func WithLoginFailureLocation(location string) Option {
	return func(f *filter) {
		if location != "" {
			f.loginFailure = location
		}
	}
}

type filter struct {
	engine *goAuthWeb.Engine
	logger *zap.Logger
	cfg    goAuthWeb.Config

	login        access.Route
	logout       access.Route
	loginFailure string
	clientIP     func(*http.Request) string
}

// Filter returns the security filter for engine.
func Filter(engine *goAuthWeb.Engine, opts ...Option) func(http.Handler) http.Handler {
	f := &filter{
		engine:   engine,
		logger:   engine.Logger().Named("filter"),
		cfg:      engine.Config(),
		clientIP: remoteHost,
	}
	f.login, _ = engine.Route(access.RouteLogin)
	f.logout, _ = engine.Route(access.RouteLogout)
	f.loginFailure = f.login.URI + "?error"
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return func(next http.Handler) http.Handler {
		secured := engine.SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.serve(w, r, next)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine.Decide(r.URL.Path) == access.DecisionIgnore {
				next.ServeHTTP(w, r)
				return
			}

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := goAuthWeb.WithRequestID(r.Context(), requestID)
			ctx = goAuthWeb.WithClientIP(ctx, f.clientIP(r))
			secured.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (f *filter) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()

	if f.engine.CSRFEnabled() && isUnsafe(r.Method) {
		if err := f.engine.ValidateCSRF(ctx, r); err != nil {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
	}

	cleaned := path.Clean("/" + r.URL.Path)
	if r.Method == http.MethodPost {
		if f.login.Enabled && cleaned == f.login.URI {
			f.handleLogin(w, r)
			return
		}
		if f.logout.Enabled && cleaned == f.logout.URI {
			f.handleLogout(w, r)
			return
		}
	}

	if f.engine.Decide(r.URL.Path) == access.DecisionPermit {
		f.forward(w, r, next)
		return
	}

	p, err := f.engine.CurrentPrincipal(ctx, r)
	if err == nil {
		f.forward(w, r.WithContext(withPrincipal(ctx, p)), next)
		return
	}
	if !isNotFound(err) {
		f.logger.Error("principal lookup failed",
			zap.String("request_id", goAuthWeb.RequestIDFromContext(ctx)),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	f.engine.RecordChallenge(ctx, r)
	if f.login.Enabled && wantsHTML(r) {
		http.Redirect(w, r, f.login.URI, http.StatusFound)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// forward hands r to next, exposing the CSRF token to safe requests. The
// token, and with it the session, is only created for requests that reach
// the application.
func (f *filter) forward(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if f.engine.CSRFEnabled() && !isUnsafe(r.Method) {
		ctx := r.Context()
		tok, err := f.engine.CSRFToken(ctx)
		if err != nil {
			f.logger.Error("csrf token unavailable",
				zap.String("request_id", goAuthWeb.RequestIDFromContext(ctx)),
				zap.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		r = r.WithContext(csrf.WithToken(ctx, tok))
	}
	next.ServeHTTP(w, r)
}

func (f *filter) handleLogin(w http.ResponseWriter, r *http.Request) {
	attempt := goAuthWeb.LoginAttempt{
		Login:    r.PostFormValue(f.cfg.Login.UsernameParameter),
		Password: r.PostFormValue(f.cfg.Login.PasswordParameter),
	}
	if f.cfg.Login.AccountStoreParameter != "" {
		attempt.AccountStore = r.PostFormValue(f.cfg.Login.AccountStoreParameter)
	}

	res, err := f.engine.Login(r.Context(), w, r, attempt)
	if err == nil {
		return
	}
	if res != nil {
		// Persisted; only the success handler failed and may have written already.
		f.logger.Warn("login success handler failed",
			zap.String("request_id", goAuthWeb.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		return
	}
	http.Redirect(w, r, f.loginFailure, http.StatusSeeOther)
}

func (f *filter) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := f.engine.Logout(r.Context(), w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
