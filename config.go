package goAuthWeb

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config defines a public type used by goAuthWeb APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Application  ApplicationConfig
	Grant        GrantConfig
	Login        LoginConfig
	Logout       LogoutConfig
	Forgot       RouteConfig
	Change       RouteConfig
	Register     RouteConfig
	Verify       RouteConfig
	CSRF         CSRFConfig
	Static       StaticConfig
	Session      SessionConfig
	ResultCookie ResultCookieConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Logging      LoggingConfig
}

/*
====================================
APPLICATION / GRANT CONFIG
====================================
*/

// ApplicationConfig names the default application used when neither the
// login attempt nor the request context carries one.
type ApplicationConfig struct {
	Href string
	Name string
}

// GrantConfig tunes the outbound password-grant client.
type GrantConfig struct {
	Timeout          time.Duration
	APIKeyID         string
	APIKeySecret     string
	MaxResponseBytes int64
	UserAgent        string
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig describes one functional endpoint. Disabled routes are not
// registered as public and fall through to authentication-required.
type RouteConfig struct {
	Enabled bool
	URI     string
	NextURI string
}

// LoginConfig extends the login route with its form field names.
type LoginConfig struct {
	RouteConfig
	UsernameParameter     string
	PasswordParameter     string
	AccountStoreParameter string
}

// LogoutConfig extends the logout route.
type LogoutConfig struct {
	RouteConfig
	InvalidateSession bool
}

// CSRFConfig defines a public type used by goAuthWeb APIs.
type CSRFConfig struct {
	Enabled       bool
	AttributeName string
	ParameterName string
	HeaderName    string
	TokenBytes    int
}

// StaticConfig lists request paths that bypass the security filter.
type StaticConfig struct {
	Ignored []string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goAuthWeb APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix       string
	TTL               time.Duration
	SlidingExpiration bool
	JitterEnabled     bool
	JitterRange       time.Duration
	CookieName        string
	CookiePath        string
	CookieDomain      string
	PrincipalKey      string
}

// ResultCookieConfig enables the signed authentication-result cookie.
type ResultCookieConfig struct {
	Enabled       bool
	Name          string
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goAuthWeb APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode        bool
	RequireSecureCookies  bool
	SameSitePolicy        http.SameSite
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	ThrottlePrefix        string
}

// AuditConfig defines a public type used by goAuthWeb APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goAuthWeb APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig drives [NewLogger].
type LoggingConfig struct {
	Level       string
	Development bool
	Encoding    string // "json" or "console"
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock configuration: every route enabled,
// CSRF on, results kept in the session.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Grant: GrantConfig{
			Timeout:          10 * time.Second,
			MaxResponseBytes: 1 << 20,
			UserAgent:        "goAuthWeb/1.0",
		},
		Login: LoginConfig{
			RouteConfig:           RouteConfig{Enabled: true, URI: "/login", NextURI: "/"},
			UsernameParameter:     "login",
			PasswordParameter:     "password",
			AccountStoreParameter: "accountStore",
		},
		Logout: LogoutConfig{
			RouteConfig:       RouteConfig{Enabled: true, URI: "/logout", NextURI: "/login?status=logout"},
			InvalidateSession: true,
		},
		Forgot:   RouteConfig{Enabled: true, URI: "/forgot"},
		Change:   RouteConfig{Enabled: true, URI: "/change"},
		Register: RouteConfig{Enabled: true, URI: "/register"},
		Verify:   RouteConfig{Enabled: true, URI: "/verify"},
		CSRF: CSRFConfig{
			Enabled:       true,
			AttributeName: "csrfToken",
			ParameterName: "csrfToken",
			HeaderName:    "X-CSRF-Token",
			TokenBytes:    32,
		},
		Static: StaticConfig{
			Ignored: []string{
				"/assets/css/goauthweb.css",
				"/assets/css/custom.goauthweb.css",
			},
		},
		Session: SessionConfig{
			RedisPrefix:       "gws",
			TTL:               30 * time.Minute,
			SlidingExpiration: true,
			JitterEnabled:     false,
			JitterRange:       0,
			CookieName:        "goauthweb_sid",
			CookiePath:        "/",
			PrincipalKey:      "goAuthWeb.principal",
		},
		ResultCookie: ResultCookieConfig{
			Enabled:       false,
			Name:          "account",
			TTL:           time.Hour,
			SigningMethod: "hs256",
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			RequireSecureCookies:  false,
			SameSitePolicy:        http.SameSiteLaxMode,
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			ThrottlePrefix:        "gwr",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Static.Ignored = append([]string(nil), cfg.Static.Ignored...)
	out.ResultCookie.PrivateKey = cloneBytes(cfg.ResultCookie.PrivateKey)
	out.ResultCookie.PublicKey = cloneBytes(cfg.ResultCookie.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Application
	if c.Application.Href != "" {
		u, err := url.Parse(c.Application.Href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("Application Href must be an absolute http(s) URL")
		}
	}

	// Grant
	if c.Grant.Timeout <= 0 {
		return errors.New("Grant Timeout must be > 0")
	}
	if c.Grant.MaxResponseBytes <= 0 {
		return errors.New("Grant MaxResponseBytes must be > 0")
	}
	if (c.Grant.APIKeyID == "") != (c.Grant.APIKeySecret == "") {
		return errors.New("Grant APIKeyID and APIKeySecret must be set together")
	}

	// Routes
	routes := []struct {
		name string
		cfg  RouteConfig
	}{
		{"Login", c.Login.RouteConfig},
		{"Logout", c.Logout.RouteConfig},
		{"Forgot", c.Forgot},
		{"Change", c.Change},
		{"Register", c.Register},
		{"Verify", c.Verify},
	}
	seen := make(map[string]string, len(routes))
	for _, r := range routes {
		if !r.cfg.Enabled {
			continue
		}
		if !strings.HasPrefix(r.cfg.URI, "/") || strings.ContainsAny(r.cfg.URI, "?#*") {
			return errors.New(r.name + " URI must be an absolute path without query or wildcard")
		}
		if other, dup := seen[r.cfg.URI]; dup {
			return errors.New(r.name + " URI collides with " + other + " URI")
		}
		seen[r.cfg.URI] = r.name
		if r.cfg.NextURI != "" && !strings.HasPrefix(r.cfg.NextURI, "/") {
			return errors.New(r.name + " NextURI must be a local path")
		}
	}
	if c.Login.Enabled {
		if c.Login.NextURI == "" {
			return errors.New("Login NextURI is required when login is enabled")
		}
		if c.Login.UsernameParameter == "" || c.Login.PasswordParameter == "" {
			return errors.New("Login UsernameParameter and PasswordParameter are required")
		}
		if c.Login.UsernameParameter == c.Login.PasswordParameter {
			return errors.New("Login UsernameParameter and PasswordParameter must differ")
		}
	}
	if c.Logout.Enabled && c.Logout.NextURI == "" {
		return errors.New("Logout NextURI is required when logout is enabled")
	}

	// CSRF
	if c.CSRF.Enabled {
		if c.CSRF.AttributeName == "" || c.CSRF.ParameterName == "" {
			return errors.New("CSRF AttributeName and ParameterName are required when CSRF is enabled")
		}
		if c.CSRF.TokenBytes < 16 {
			return errors.New("CSRF TokenBytes must be >= 16")
		}
	}

	// Static
	for _, p := range c.Static.Ignored {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Static Ignored paths must start with /")
		}
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.JitterRange < 0 {
		return errors.New("Session JitterRange must be >= 0")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("Session JitterRange must be > 0 when JitterEnabled is true")
	}
	if c.Session.JitterRange >= c.Session.TTL && c.Session.JitterRange > 0 {
		return errors.New("Session JitterRange must be smaller than TTL")
	}
	if c.Session.PrincipalKey == "" {
		return errors.New("Session PrincipalKey is required")
	}
	if c.CSRF.Enabled && c.Session.PrincipalKey == c.CSRF.AttributeName {
		return errors.New("Session PrincipalKey must differ from CSRF AttributeName")
	}

	// Result cookie
	if c.ResultCookie.Enabled {
		if c.ResultCookie.Name == "" {
			return errors.New("ResultCookie Name is required")
		}
		if c.ResultCookie.Name == c.Session.CookieName {
			return errors.New("ResultCookie Name must differ from Session CookieName")
		}
		if c.ResultCookie.TTL <= 0 {
			return errors.New("ResultCookie TTL must be > 0")
		}
		switch c.ResultCookie.SigningMethod {
		case "hs256":
			if len(c.ResultCookie.PrivateKey) < 32 {
				return errors.New("ResultCookie hs256 requires a PrivateKey of at least 32 bytes")
			}
		case "ed25519":
			if len(c.ResultCookie.PrivateKey) == 0 {
				return errors.New("ResultCookie ed25519 requires PrivateKey")
			}
			if len(c.ResultCookie.PublicKey) == 0 {
				return errors.New("ResultCookie ed25519 requires PublicKey")
			}
		default:
			return errors.New("unsupported ResultCookie signing method")
		}
	}

	// Security
	switch c.Security.SameSitePolicy {
	case http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode, http.SameSiteNoneMode:
	default:
		return errors.New("Security SameSitePolicy is invalid")
	}
	if c.Security.SameSitePolicy == http.SameSiteNoneMode && !c.Security.RequireSecureCookies {
		return errors.New("SameSite=None requires RequireSecureCookies")
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("EnableIPThrottle requires EnableLoginThrottle")
	}
	if c.Security.ProductionMode {
		if !c.Security.RequireSecureCookies {
			return errors.New("ProductionMode requires RequireSecureCookies")
		}
		if !c.CSRF.Enabled {
			return errors.New("ProductionMode requires CSRF protection")
		}
		if !c.Logout.InvalidateSession {
			return errors.New("ProductionMode requires Logout InvalidateSession")
		}
		if c.Application.Href != "" && !strings.HasPrefix(c.Application.Href, "https://") {
			return errors.New("ProductionMode requires an https Application Href")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Logging
	if c.Logging.Level != "" {
		if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
			return errors.New("Logging Level is invalid")
		}
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return errors.New("Logging Encoding must be 'json' or 'console'")
	}

	return nil
}
