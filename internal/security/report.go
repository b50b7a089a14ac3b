package security

import (
	"net/http"
	"strings"
	"time"
)

// Report summarizes the effective security posture of a built engine.
type Report struct {
	ProductionMode        bool
	SecureCookies         bool
	SameSite              string
	CSRFEnabled           bool
	CSRFTokenBytes        int
	SessionTTL            time.Duration
	SlidingExpiration     bool
	ResultCookieEnabled   bool
	ResultCookieAlgorithm string
	ResultCookieTTL       time.Duration
	GrantOverTLS          bool
	GrantClientAuth       bool
	RateLimitingActive    bool
	IPThrottleActive      bool
	AuditEnabled          bool
	Provider              string
}

// ReportInput carries the raw settings a [Report] is derived from.
type ReportInput struct {
	ProductionMode        bool
	RequireSecureCookies  bool
	SameSite              http.SameSite
	CSRFEnabled           bool
	CSRFTokenBytes        int
	SessionTTL            time.Duration
	SlidingExpiration     bool
	ResultCookieEnabled   bool
	ResultCookieMethod    string
	ResultCookieTTL       time.Duration
	ApplicationHref       string
	APIKeyID              string
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	AuditEnabled          bool
	Provider              string
}

// BuildReport derives the posture from input. Settings that are inert
// (for example a throttle with no attempt budget) report as inactive.
func BuildReport(input ReportInput) Report {
	rateLimiting := input.EnableLoginThrottle &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	r := Report{
		ProductionMode:      input.ProductionMode,
		SecureCookies:       input.RequireSecureCookies || input.ProductionMode,
		SameSite:            sameSiteName(input.SameSite),
		CSRFEnabled:         input.CSRFEnabled,
		SessionTTL:          input.SessionTTL,
		SlidingExpiration:   input.SlidingExpiration,
		ResultCookieEnabled: input.ResultCookieEnabled,
		GrantOverTLS:        strings.HasPrefix(strings.ToLower(input.ApplicationHref), "https://"),
		GrantClientAuth:     input.APIKeyID != "",
		RateLimitingActive:  rateLimiting,
		IPThrottleActive:    rateLimiting && input.EnableIPThrottle,
		AuditEnabled:        input.AuditEnabled,
		Provider:            input.Provider,
	}
	if input.CSRFEnabled {
		r.CSRFTokenBytes = input.CSRFTokenBytes
	}
	if input.ResultCookieEnabled {
		r.ResultCookieAlgorithm = strings.ToUpper(input.ResultCookieMethod)
		if r.ResultCookieAlgorithm == "" {
			r.ResultCookieAlgorithm = "HS256"
		}
		if r.ResultCookieAlgorithm == "ED25519" {
			r.ResultCookieAlgorithm = "EdDSA"
		}
		r.ResultCookieTTL = input.ResultCookieTTL
	}
	return r
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	case http.SameSiteLaxMode:
		return "lax"
	default:
		return "default"
	}
}
