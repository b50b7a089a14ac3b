package goAuthWeb

import (
	"context"

	"github.com/MrEthical07/goAuthWeb/oauth"
)

type clientIPContextKey struct{}
type applicationContextKey struct{}
type requestIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP login throttling and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithApplication attaches the application a login should be exchanged
// against. It takes precedence over the configured default application and
// is overridden by [LoginAttempt.Application].
func WithApplication(ctx context.Context, app *oauth.Application) context.Context {
	return context.WithValue(ctx, applicationContextKey{}, app)
}

// WithRequestID attaches a correlation id carried into logs and audit events.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// ApplicationFromContext returns the application attached by [WithApplication].
func ApplicationFromContext(ctx context.Context) (*oauth.Application, bool) {
	if ctx == nil {
		return nil, false
	}
	app, _ := ctx.Value(applicationContextKey{}).(*oauth.Application)
	return app, app != nil
}

// RequestIDFromContext returns the id attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
