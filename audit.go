package goAuthWeb

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthWeb/session"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventGrantExchangeFailed = "grant_exchange_failed"
	auditEventLogout              = "logout"
	auditEventCSRFRejected        = "csrf_rejected"
	auditEventAccessDenied        = "access_denied"
)

// AuditErrorCode is the stable, non-sensitive error classification carried
// in audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrGrantExchange       AuditErrorCode = "grant_exchange_failed"
	auditErrConfiguration       AuditErrorCode = "configuration"
	auditErrCSRF                AuditErrorCode = "csrf_validation_failed"
	auditErrSessionRequired     AuditErrorCode = "session_required"
	auditErrSessionPersist      AuditErrorCode = "session_persist_failed"
	auditErrSessionInvalidation AuditErrorCode = "session_invalidation_failed"
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrCanceled            AuditErrorCode = "canceled"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	login string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Login:       login,
		Provider:    e.providerName(),
		Application: e.applicationHref(ctx, nil),
		RequestID:   RequestIDFromContext(ctx),
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if sess, ok := session.FromContext(ctx); ok {
		event.SessionID = sess.ID()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrConfiguration):
		return auditErrConfiguration
	case errors.Is(err, ErrCsrfValidationFailed):
		return auditErrCSRF
	case errors.Is(err, ErrSessionRequired):
		return auditErrSessionRequired
	case errors.Is(err, ErrSessionPersistFailed):
		return auditErrSessionPersist
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrResultNotFound):
		return auditErrUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrGrantExchangeFailed):
		return auditErrGrantExchange
	case errors.Is(err, session.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
