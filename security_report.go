package goAuthWeb

import "github.com/MrEthical07/goAuthWeb/internal/security"

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport = security.Report

// SecurityReport describes the effective security settings of the engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:        cfg.Security.ProductionMode,
		RequireSecureCookies:  cfg.Security.RequireSecureCookies,
		SameSite:              cfg.Security.SameSitePolicy,
		CSRFEnabled:           cfg.CSRF.Enabled,
		CSRFTokenBytes:        cfg.CSRF.TokenBytes,
		SessionTTL:            cfg.Session.TTL,
		SlidingExpiration:     cfg.Session.SlidingExpiration,
		ResultCookieEnabled:   cfg.ResultCookie.Enabled,
		ResultCookieMethod:    cfg.ResultCookie.SigningMethod,
		ResultCookieTTL:       cfg.ResultCookie.TTL,
		ApplicationHref:       cfg.Application.Href,
		APIKeyID:              cfg.Grant.APIKeyID,
		EnableLoginThrottle:   cfg.Security.EnableLoginThrottle,
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		AuditEnabled:          cfg.Audit.Enabled,
		Provider:              e.providerName(),
	})
}
