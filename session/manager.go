package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "goauthweb_sid"

// CookieConfig controls the session cookie written by [Manager].
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// Manager attaches a Redis-backed session to every request.
type Manager struct {
	store  *Store
	cookie CookieConfig
	logger *zap.Logger
}

// NewManager binds store to the session cookie described by cookie.
func NewManager(store *Store, cookie CookieConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		cookie: cookie.withDefaults(),
		logger: logger,
	}
}

// Cookie returns the effective cookie settings.
func (m *Manager) Cookie() CookieConfig {
	return m.cookie
}

// Middleware loads the session named by the cookie and stores it in the
// request context. A missing or stale cookie yields a session that is only
// written to Redis, and only gets a cookie, on its first write.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := m.loadSession(ctx, r.Cookie)
		if err != nil {
			m.logger.Error("session load failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		bound := &cookieBoundSession{sess: sess, w: w, manager: m}
		next.ServeHTTP(w, r.WithContext(WithSession(ctx, bound)))
	})
}

// loadSession returns nil, nil when the request names no live session.
func (m *Manager) loadSession(ctx context.Context, cookieFn func(name string) (*http.Cookie, error)) (*RedisSession, error) {
	cookie, err := cookieFn(m.cookie.Name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	if cookie.Value == "" {
		return nil, nil
	}

	sess, err := m.store.Load(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (m *Manager) createSession(ctx context.Context) (*RedisSession, *http.Cookie, error) {
	sess, err := m.store.Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Debug("session created")
	return sess, m.buildCookie(sess.ID(), m.store.TTL()), nil
}

func (m *Manager) buildCookie(value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: m.cookie.SameSite,
	}
	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		c.Value = ""
	}
	return c
}

// cookieBoundSession keeps the browser cookie in step with the Redis record.
// sess stays nil until the first write.
type cookieBoundSession struct {
	mu          sync.Mutex
	sess        *RedisSession
	invalidated bool
	w           http.ResponseWriter
	manager     *Manager
}

func (s *cookieBoundSession) current() (*RedisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil && s.invalidated {
		return nil, ErrSessionInvalidated
	}
	return s.sess, nil
}

func (s *cookieBoundSession) materialize(ctx context.Context) (*RedisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return s.sess, nil
	}
	if s.invalidated {
		return nil, ErrSessionInvalidated
	}
	sess, cookie, err := s.manager.createSession(ctx)
	if err != nil {
		return nil, err
	}
	http.SetCookie(s.w, cookie)
	s.sess = sess
	return sess, nil
}

func (s *cookieBoundSession) ID() string {
	sess, _ := s.current()
	if sess == nil {
		return ""
	}
	return sess.ID()
}

func (s *cookieBoundSession) Attribute(ctx context.Context, name string) (string, bool, error) {
	sess, err := s.current()
	if err != nil {
		return "", false, err
	}
	if sess == nil {
		return "", false, validAttributeName(name)
	}
	return sess.Attribute(ctx, name)
}

func (s *cookieBoundSession) SetAttribute(ctx context.Context, name, value string) error {
	if err := validAttributeName(name); err != nil {
		return err
	}
	sess, err := s.materialize(ctx)
	if err != nil {
		return err
	}
	return sess.SetAttribute(ctx, name, value)
}

func (s *cookieBoundSession) RemoveAttribute(ctx context.Context, name string) error {
	sess, err := s.current()
	if err != nil {
		return err
	}
	if sess == nil {
		return validAttributeName(name)
	}
	return sess.RemoveAttribute(ctx, name)
}

// Regenerate on a session that was never written just creates it.
func (s *cookieBoundSession) Regenerate(ctx context.Context) error {
	sess, err := s.current()
	if err != nil {
		return err
	}
	if sess == nil {
		_, err = s.materialize(ctx)
		return err
	}
	if err := sess.Regenerate(ctx); err != nil {
		return err
	}
	http.SetCookie(s.w, s.manager.buildCookie(sess.ID(), s.manager.store.TTL()))
	return nil
}

func (s *cookieBoundSession) Invalidate(ctx context.Context) error {
	sess, err := s.current()
	if err != nil {
		return nil
	}
	if sess != nil {
		if err := sess.Invalidate(ctx); err != nil {
			return err
		}
	} else {
		s.mu.Lock()
		s.invalidated = true
		s.mu.Unlock()
	}
	http.SetCookie(s.w, s.manager.buildCookie("", -1))
	return nil
}
