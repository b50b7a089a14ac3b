package goAuthWeb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthWeb/jwt"
	"github.com/MrEthical07/goAuthWeb/session"
)

// DefaultPrincipalAttribute is the session attribute holding the JSON principal.
const DefaultPrincipalAttribute = "goAuthWeb.principal"

/*
====================================
SESSION RESULT SAVER
====================================
*/

// SessionResultSaver stores the principal as JSON in a session attribute.
// It needs a session in the request context (see [session.WithSession]).
type SessionResultSaver struct {
	attribute string
	now       func() time.Time
}

// NewSessionResultSaver returns a saver writing to attribute, or
// [DefaultPrincipalAttribute] when attribute is empty.
func NewSessionResultSaver(attribute string) *SessionResultSaver {
	if attribute == "" {
		attribute = DefaultPrincipalAttribute
	}
	return &SessionResultSaver{attribute: attribute, now: time.Now}
}

// Set describes the set operation and its observable behavior.
//
// Set may return an error when input validation, dependency calls, or security checks fail.
func (s *SessionResultSaver) Set(ctx context.Context, _ http.ResponseWriter, _ *http.Request, result *AuthenticationResult) error {
	if result == nil {
		return errors.New("authentication result is nil")
	}
	sess, ok := session.FromContext(ctx)
	if !ok {
		return ErrSessionRequired
	}

	raw, err := json.Marshal(result.Principal())
	if err != nil {
		return err
	}
	return sess.SetAttribute(ctx, s.attribute, string(raw))
}

// Get returns the stored principal. A principal whose grant has expired is
// reported as [ErrResultNotFound].
func (s *SessionResultSaver) Get(ctx context.Context, _ *http.Request) (*Principal, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrResultNotFound
	}

	raw, found, err := sess.Attribute(ctx, s.attribute)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionInvalidated) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	if !found || raw == "" {
		return nil, ErrResultNotFound
	}

	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: corrupt principal: %v", ErrResultNotFound, err)
	}
	if p.Login == "" || p.Expired(s.now()) {
		return nil, ErrResultNotFound
	}
	return &p, nil
}

// Clear removes the attribute. Without a session there is nothing to clear.
func (s *SessionResultSaver) Clear(ctx context.Context, _ http.ResponseWriter, _ *http.Request) error {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil
	}
	err := sess.RemoveAttribute(ctx, s.attribute)
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionInvalidated) {
		return nil
	}
	return err
}

/*
====================================
COOKIE RESULT SAVER
====================================
*/

// CookieResultSaver stores the principal in a signed JWT cookie.
type CookieResultSaver struct {
	jwt      *jwt.Manager
	name     string
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite
}

// CookieOptions describes the result cookie attributes.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieResultSaver describes the newcookieresultsaver operation and its observable behavior.
//
// NewCookieResultSaver signs with manager; the cookie lifetime follows manager's TTL.
func NewCookieResultSaver(manager *jwt.Manager, opts CookieOptions) *CookieResultSaver {
	if opts.Name == "" {
		opts.Name = "account"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &CookieResultSaver{
		jwt:      manager,
		name:     opts.Name,
		path:     opts.Path,
		domain:   opts.Domain,
		secure:   opts.Secure,
		sameSite: opts.SameSite,
	}
}

// Set signs the principal and writes the cookie. The token never outlives
// the upstream grant.
func (c *CookieResultSaver) Set(_ context.Context, w http.ResponseWriter, _ *http.Request, result *AuthenticationResult) error {
	if result == nil {
		return errors.New("authentication result is nil")
	}
	if w == nil {
		return errors.New("cookie result saver requires a response writer")
	}

	p := result.Principal()
	maxAge, err := cookieMaxAge(c.jwt.TTL(), p.ExpiresAt, time.Now())
	if err != nil {
		return err
	}
	token, err := c.jwt.Issue(p.Login, jwt.PrincipalClaims{
		Provider:        p.Provider,
		Application:     p.Application,
		AccessTokenHref: p.AccessTokenHref,
		TokenType:       p.TokenType,
	}, p.ExpiresAt)
	if err != nil {
		return err
	}

	http.SetCookie(w, c.cookie(token, maxAge))
	return nil
}

// cookieMaxAge caps ttl at the grant expiry and rounds up to whole seconds,
// since a Max-Age of zero would leave a browser-session cookie behind.
func cookieMaxAge(ttl time.Duration, expiresAt, now time.Time) (int, error) {
	maxAge := ttl
	if !expiresAt.IsZero() {
		untilExpiry := expiresAt.Sub(now)
		if untilExpiry <= 0 {
			return 0, errors.New("authentication result has already expired")
		}
		if untilExpiry < maxAge {
			maxAge = untilExpiry
		}
	}
	return int((maxAge + time.Second - 1) / time.Second), nil
}

// Get parses the cookie. A missing, expired or forged cookie is
// [ErrResultNotFound].
func (c *CookieResultSaver) Get(_ context.Context, r *http.Request) (*Principal, error) {
	if r == nil {
		return nil, ErrResultNotFound
	}
	ck, err := r.Cookie(c.name)
	if err != nil || ck.Value == "" {
		return nil, ErrResultNotFound
	}

	claims, err := c.jwt.Parse(ck.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultNotFound, err)
	}

	p := &Principal{
		Login:           claims.Subject,
		Provider:        claims.Provider,
		Application:     claims.Application,
		AccessTokenHref: claims.AccessTokenHref,
		TokenType:       claims.TokenType,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	if claims.IssuedAt != nil {
		p.AuthenticatedAt = claims.IssuedAt.Time.UTC()
	}
	return p, nil
}

// Clear expires the cookie.
func (c *CookieResultSaver) Clear(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	if w == nil {
		return nil
	}
	http.SetCookie(w, c.cookie("", -1))
	return nil
}

func (c *CookieResultSaver) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: c.sameSite,
	}
}

/*
====================================
COMPOSITE RESULT SAVER
====================================
*/

// CompositeResultSaver fans Set and Clear out to every saver in order. Get
// answers from the first saver holding a principal.
type CompositeResultSaver struct {
	savers []ResultSaver
}

// NewCompositeResultSaver skips nil savers.
func NewCompositeResultSaver(savers ...ResultSaver) *CompositeResultSaver {
	out := make([]ResultSaver, 0, len(savers))
	for _, s := range savers {
		if s != nil {
			out = append(out, s)
		}
	}
	return &CompositeResultSaver{savers: out}
}

// Set stops at the first failing saver; the engine rolls back with Clear.
func (c *CompositeResultSaver) Set(ctx context.Context, w http.ResponseWriter, r *http.Request, result *AuthenticationResult) error {
	for _, s := range c.savers {
		if err := s.Set(ctx, w, r, result); err != nil {
			return err
		}
	}
	return nil
}

func (c *CompositeResultSaver) Get(ctx context.Context, r *http.Request) (*Principal, error) {
	var firstErr error
	for _, s := range c.savers {
		p, err := s.Get(ctx, r)
		if err == nil {
			return p, nil
		}
		if firstErr == nil && !errors.Is(err, ErrResultNotFound) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrResultNotFound
}

// Clear always attempts every saver and joins their errors.
func (c *CompositeResultSaver) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var errs []error
	for _, s := range c.savers {
		if err := s.Clear(ctx, w, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
