package goAuthWeb

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goAuthWeb/access"
	"github.com/MrEthical07/goAuthWeb/csrf"
	internalaudit "github.com/MrEthical07/goAuthWeb/internal/audit"
	"github.com/MrEthical07/goAuthWeb/internal/rate"
	"github.com/MrEthical07/goAuthWeb/jwt"
	"github.com/MrEthical07/goAuthWeb/oauth"
	"github.com/MrEthical07/goAuthWeb/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder defines a public type used by goAuthWeb APIs.
//
// A Builder can be used for exactly one successful Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger

	httpClient oauth.Doer
	auditSink  AuditSink

	provider             AuthenticationProvider
	saver                ResultSaver
	successHandler       SuccessHandler
	logoutHandler        LogoutHandler
	logoutSuccessHandler LogoutSuccessHandler
	sessionProvider      session.Provider

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client backing sessions and the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient replaces the client used for grant exchanges. Ignored when
// a custom [AuthenticationProvider] is installed.
func (b *Builder) WithHTTPClient(client oauth.Doer) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithAuthenticationProvider(p AuthenticationProvider) *Builder {
	b.provider = p
	return b
}

func (b *Builder) WithResultSaver(s ResultSaver) *Builder {
	b.saver = s
	return b
}

func (b *Builder) WithSuccessHandler(h SuccessHandler) *Builder {
	b.successHandler = h
	return b
}

func (b *Builder) WithLogoutHandler(h LogoutHandler) *Builder {
	b.logoutHandler = h
	return b
}

func (b *Builder) WithLogoutSuccessHandler(h LogoutSuccessHandler) *Builder {
	b.logoutSuccessHandler = h
	return b
}

// WithSessionProvider installs a session container other than the Redis
// store, e.g. [session.NewGorillaManager].
func (b *Builder) WithSessionProvider(p session.Provider) *Builder {
	b.sessionProvider = p
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an immutable [Engine].
//
// Build may return an error when input validation fails or a required
// collaborator is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		if b.sessionProvider == nil {
			return nil, errors.New("redis client or session provider required")
		}
		if cfg.Security.EnableLoginThrottle {
			return nil, errors.New("EnableLoginThrottle requires redis client")
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- ACCESS POLICY --------
	policy, err := access.NewPolicy(routesFromConfig(cfg), cfg.Static.Ignored)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		logger:  logger,
		policy:  policy,
		metrics: NewMetrics(cfg.Metrics),
		csrf: csrf.NewManager(csrf.Config{
			Enabled:       cfg.CSRF.Enabled,
			AttributeName: cfg.CSRF.AttributeName,
			ParameterName: cfg.CSRF.ParameterName,
			HeaderName:    cfg.CSRF.HeaderName,
			TokenBytes:    cfg.CSRF.TokenBytes,
		}),
	}
	if cfg.Application.Href != "" {
		engine.defaultApp = &oauth.Application{Href: cfg.Application.Href, Name: cfg.Application.Name}
	}

	// -------- SESSIONS --------
	if b.sessionProvider != nil {
		engine.sessions = b.sessionProvider
	} else {
		store := session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.TTL,
			cfg.Session.SlidingExpiration,
			cfg.Session.JitterEnabled,
			cfg.Session.JitterRange,
		)
		engine.sessionStore = store
		engine.sessions = session.NewManager(store, session.CookieConfig{
			Name:     cfg.Session.CookieName,
			Path:     cfg.Session.CookiePath,
			Domain:   cfg.Session.CookieDomain,
			Secure:   cfg.Security.RequireSecureCookies,
			SameSite: cfg.Security.SameSitePolicy,
		}, logger.Named("session"))
	}

	// -------- LOGIN THROTTLE --------
	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.ThrottlePrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil && cfg.Audit.Enabled {
		sink = NewZapSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink, logger.Named("audit"))

	// -------- AUTHENTICATION PROVIDER --------
	if b.provider != nil {
		engine.provider = b.provider
	} else {
		opts := []oauth.Option{
			oauth.WithMaxResponseBytes(cfg.Grant.MaxResponseBytes),
			oauth.WithUserAgent(cfg.Grant.UserAgent),
			oauth.WithLogger(logger.Named("oauth")),
		}
		if b.httpClient != nil {
			opts = append(opts, oauth.WithHTTPClient(b.httpClient))
		} else {
			opts = append(opts, oauth.WithHTTPClient(&http.Client{Timeout: cfg.Grant.Timeout}))
		}
		if cfg.Grant.APIKeyID != "" {
			opts = append(opts, oauth.WithAPIKey(cfg.Grant.APIKeyID, cfg.Grant.APIKeySecret))
		}
		engine.provider = NewGrantAuthenticationProvider(oauth.NewAuthenticator(opts...), engine.defaultApp)
	}

	// -------- RESULT SAVER --------
	if b.saver != nil {
		engine.saver = b.saver
	} else {
		sessionSaver := NewSessionResultSaver(cfg.Session.PrincipalKey)
		if cfg.ResultCookie.Enabled {
			jm, err := jwt.NewManager(jwt.Config{
				TTL:           cfg.ResultCookie.TTL,
				SigningMethod: jwt.SigningMethod(cfg.ResultCookie.SigningMethod),
				PrivateKey:    cloneBytes(cfg.ResultCookie.PrivateKey),
				PublicKey:     cloneBytes(cfg.ResultCookie.PublicKey),
				Issuer:        cfg.ResultCookie.Issuer,
				Audience:      cfg.ResultCookie.Audience,
			})
			if err != nil {
				engine.audit.Close()
				return nil, err
			}
			engine.saver = NewCompositeResultSaver(sessionSaver, NewCookieResultSaver(jm, CookieOptions{
				Name:     cfg.ResultCookie.Name,
				Path:     cfg.Session.CookiePath,
				Domain:   cfg.Session.CookieDomain,
				Secure:   cfg.Security.RequireSecureCookies,
				SameSite: cfg.Security.SameSitePolicy,
			}))
		} else {
			engine.saver = sessionSaver
		}
	}

	// -------- HANDLERS --------
	engine.successHandler = b.successHandler
	if engine.successHandler == nil {
		engine.successHandler = RedirectSuccessHandler{Location: cfg.Login.NextURI}
	}
	engine.logoutHandler = b.logoutHandler
	if engine.logoutHandler == nil {
		engine.logoutHandler = SaverLogoutHandler{Saver: engine.saver}
	}
	engine.logoutSuccessHandler = b.logoutSuccessHandler
	if engine.logoutSuccessHandler == nil {
		engine.logoutSuccessHandler = RedirectLogoutSuccessHandler{Location: cfg.Logout.NextURI}
	}

	b.built = true

	return engine, nil
}

func routesFromConfig(cfg Config) []access.Route {
	return []access.Route{
		{Name: access.RouteLogin, URI: cfg.Login.URI, NextURI: cfg.Login.NextURI, Enabled: cfg.Login.Enabled},
		{Name: access.RouteLogout, URI: cfg.Logout.URI, NextURI: cfg.Logout.NextURI, Enabled: cfg.Logout.Enabled},
		{Name: access.RouteForgot, URI: cfg.Forgot.URI, NextURI: cfg.Forgot.NextURI, Enabled: cfg.Forgot.Enabled},
		{Name: access.RouteChange, URI: cfg.Change.URI, NextURI: cfg.Change.NextURI, Enabled: cfg.Change.Enabled},
		{Name: access.RouteRegister, URI: cfg.Register.URI, NextURI: cfg.Register.NextURI, Enabled: cfg.Register.Enabled},
		{Name: access.RouteVerify, URI: cfg.Verify.URI, NextURI: cfg.Verify.NextURI, Enabled: cfg.Verify.Enabled},
	}
}
