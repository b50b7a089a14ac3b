package goAuthWeb

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is used by [LoadConfigFromEnv] when prefix is empty.
const DefaultEnvPrefix = "GOAUTHWEB"

// LoadConfigFromEnv overlays <prefix>_* environment variables on
// [DefaultConfig] and validates the result. Unparseable values keep the
// default.
//
//	GOAUTHWEB_APPLICATION_HREF=https://api.example.com/v1/applications/abc
//	GOAUTHWEB_LOGIN_URI=/signin
//	GOAUTHWEB_CSRF_ENABLED=false
func LoadConfigFromEnv(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	key := func(name string) string { return prefix + "_" + name }

	cfg := defaultConfig()

	cfg.Application.Href = getEnv(key("APPLICATION_HREF"), cfg.Application.Href)
	cfg.Application.Name = getEnv(key("APPLICATION_NAME"), cfg.Application.Name)

	cfg.Grant.Timeout = getDuration(key("GRANT_TIMEOUT"), cfg.Grant.Timeout)
	cfg.Grant.APIKeyID = getEnv(key("GRANT_API_KEY_ID"), cfg.Grant.APIKeyID)
	cfg.Grant.APIKeySecret = getEnv(key("GRANT_API_KEY_SECRET"), cfg.Grant.APIKeySecret)
	cfg.Grant.MaxResponseBytes = int64(getInt(key("GRANT_MAX_RESPONSE_BYTES"), int(cfg.Grant.MaxResponseBytes)))
	cfg.Grant.UserAgent = getEnv(key("GRANT_USER_AGENT"), cfg.Grant.UserAgent)

	cfg.Login.RouteConfig = getRoute(key("LOGIN"), cfg.Login.RouteConfig)
	cfg.Login.UsernameParameter = getEnv(key("LOGIN_USERNAME_PARAMETER"), cfg.Login.UsernameParameter)
	cfg.Login.PasswordParameter = getEnv(key("LOGIN_PASSWORD_PARAMETER"), cfg.Login.PasswordParameter)
	cfg.Login.AccountStoreParameter = getEnv(key("LOGIN_ACCOUNT_STORE_PARAMETER"), cfg.Login.AccountStoreParameter)
	cfg.Logout.RouteConfig = getRoute(key("LOGOUT"), cfg.Logout.RouteConfig)
	cfg.Logout.InvalidateSession = getBool(key("LOGOUT_INVALIDATE_SESSION"), cfg.Logout.InvalidateSession)
	cfg.Forgot = getRoute(key("FORGOT"), cfg.Forgot)
	cfg.Change = getRoute(key("CHANGE"), cfg.Change)
	cfg.Register = getRoute(key("REGISTER"), cfg.Register)
	cfg.Verify = getRoute(key("VERIFY"), cfg.Verify)

	cfg.CSRF.Enabled = getBool(key("CSRF_ENABLED"), cfg.CSRF.Enabled)
	cfg.CSRF.AttributeName = getEnv(key("CSRF_ATTRIBUTE_NAME"), cfg.CSRF.AttributeName)
	cfg.CSRF.ParameterName = getEnv(key("CSRF_PARAMETER_NAME"), cfg.CSRF.ParameterName)
	cfg.CSRF.HeaderName = getEnv(key("CSRF_HEADER_NAME"), cfg.CSRF.HeaderName)

	cfg.Static.Ignored = getList(key("STATIC_IGNORED"), cfg.Static.Ignored)

	cfg.Session.RedisPrefix = getEnv(key("REDIS_PREFIX"), cfg.Session.RedisPrefix)
	cfg.Session.TTL = getDuration(key("SESSION_TTL"), cfg.Session.TTL)
	cfg.Session.SlidingExpiration = getBool(key("SESSION_SLIDING"), cfg.Session.SlidingExpiration)
	cfg.Session.JitterEnabled = getBool(key("SESSION_JITTER_ENABLED"), cfg.Session.JitterEnabled)
	cfg.Session.JitterRange = getDuration(key("SESSION_JITTER_RANGE"), cfg.Session.JitterRange)
	cfg.Session.CookieName = getEnv(key("SESSION_COOKIE_NAME"), cfg.Session.CookieName)
	cfg.Session.CookieDomain = getEnv(key("SESSION_COOKIE_DOMAIN"), cfg.Session.CookieDomain)

	cfg.ResultCookie.Enabled = getBool(key("RESULT_COOKIE_ENABLED"), cfg.ResultCookie.Enabled)
	cfg.ResultCookie.Name = getEnv(key("RESULT_COOKIE_NAME"), cfg.ResultCookie.Name)
	cfg.ResultCookie.TTL = getDuration(key("RESULT_COOKIE_TTL"), cfg.ResultCookie.TTL)
	if secret, ok := os.LookupEnv(key("RESULT_COOKIE_SECRET")); ok && secret != "" {
		cfg.ResultCookie.SigningMethod = "hs256"
		cfg.ResultCookie.PrivateKey = []byte(secret)
	}
	cfg.ResultCookie.Issuer = getEnv(key("RESULT_COOKIE_ISSUER"), cfg.ResultCookie.Issuer)
	cfg.ResultCookie.Audience = getEnv(key("RESULT_COOKIE_AUDIENCE"), cfg.ResultCookie.Audience)

	cfg.Security.ProductionMode = getBool(key("PRODUCTION_MODE"), cfg.Security.ProductionMode)
	cfg.Security.RequireSecureCookies = getBool(key("SECURE_COOKIES"), cfg.Security.RequireSecureCookies)
	cfg.Security.SameSitePolicy = getSameSite(key("SAME_SITE"), cfg.Security.SameSitePolicy)
	cfg.Security.EnableLoginThrottle = getBool(key("LOGIN_THROTTLE_ENABLED"), cfg.Security.EnableLoginThrottle)
	cfg.Security.EnableIPThrottle = getBool(key("IP_THROTTLE_ENABLED"), cfg.Security.EnableIPThrottle)
	cfg.Security.MaxLoginAttempts = getInt(key("MAX_LOGIN_ATTEMPTS"), cfg.Security.MaxLoginAttempts)
	cfg.Security.LoginCooldownDuration = getDuration(key("LOGIN_COOLDOWN"), cfg.Security.LoginCooldownDuration)
	cfg.Security.ThrottlePrefix = getEnv(key("THROTTLE_PREFIX"), cfg.Security.ThrottlePrefix)

	cfg.Audit.Enabled = getBool(key("AUDIT_ENABLED"), cfg.Audit.Enabled)
	cfg.Audit.BufferSize = getInt(key("AUDIT_BUFFER_SIZE"), cfg.Audit.BufferSize)
	cfg.Audit.DropIfFull = getBool(key("AUDIT_DROP_IF_FULL"), cfg.Audit.DropIfFull)

	cfg.Metrics.Enabled = getBool(key("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.EnableLatencyHistograms = getBool(key("METRICS_LATENCY_ENABLED"), cfg.Metrics.EnableLatencyHistograms)

	cfg.Logging.Level = getEnv(key("LOG_LEVEL"), cfg.Logging.Level)
	cfg.Logging.Development = getBool(key("LOG_DEVELOPMENT"), cfg.Logging.Development)
	cfg.Logging.Encoding = getEnv(key("LOG_ENCODING"), cfg.Logging.Encoding)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getRoute(key string, def RouteConfig) RouteConfig {
	def.Enabled = getBool(key+"_ENABLED", def.Enabled)
	def.URI = getEnv(key+"_URI", def.URI)
	def.NextURI = getEnv(key+"_NEXT_URI", def.NextURI)
	return def
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}

func getSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(getEnv(key, "")) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
