package session

import (
	"context"
	"errors"
	"net/http"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when a session id does not name a live session.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionInvalidated is returned for any operation on an invalidated session.
var ErrSessionInvalidated = errors.New("session invalidated")

// ErrInvalidAttributeName rejects empty attribute names.
var ErrInvalidAttributeName = errors.New("invalid session attribute name")

// Session is a server-side attribute bag for one browser session.
//
// Attribute returns ok=false with a nil error when the attribute is absent.
// Regenerate moves the attributes to a new id and retires the old one.
// After Invalidate every method other than Invalidate returns
// [ErrSessionInvalidated]; repeated Invalidate calls are no-ops.
type Session interface {
	ID() string
	Attribute(ctx context.Context, name string) (string, bool, error)
	SetAttribute(ctx context.Context, name, value string) error
	RemoveAttribute(ctx context.Context, name string) error
	Regenerate(ctx context.Context) error
	Invalidate(ctx context.Context) error
}

// Provider attaches a [Session] to each request context.
type Provider interface {
	Middleware(next http.Handler) http.Handler
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext extracts the session stored by a [Provider] middleware.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok && sess != nil
}

func validAttributeName(name string) error {
	if name == "" {
		return ErrInvalidAttributeName
	}
	return nil
}
