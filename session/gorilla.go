package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const gorillaIDKey = "_id"

// GorillaManager adapts a gorilla/sessions store to [Provider]. Every write
// saves the session immediately so the Set-Cookie header is emitted before
// the handler writes its response body.
type GorillaManager struct {
	store  sessions.Store
	name   string
	logger *zap.Logger
}

// NewGorillaManager wraps store under the given cookie name.
func NewGorillaManager(store sessions.Store, name string, logger *zap.Logger) *GorillaManager {
	if name == "" {
		name = DefaultCookieName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GorillaManager{store: store, name: name, logger: logger}
}

// Middleware attaches the gorilla session to the request context.
func (g *GorillaManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := g.store.Get(r, g.name)
		if err != nil && raw == nil {
			g.logger.Error("session load failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err != nil {
			// Undecodable cookie; gorilla hands back a fresh session.
			g.logger.Debug("session cookie rejected", zap.Error(err))
		}

		sess := &gorillaSession{store: g.store, raw: raw, r: r, w: w}
		if _, ok := raw.Values[gorillaIDKey].(string); !ok {
			raw.Values[gorillaIDKey] = uuid.NewString()
			if err := sess.save(); err != nil {
				g.logger.Error("session save failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

type gorillaSession struct {
	mu          sync.Mutex
	store       sessions.Store
	raw         *sessions.Session
	r           *http.Request
	w           http.ResponseWriter
	invalidated bool
}

func (s *gorillaSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := s.raw.Values[gorillaIDKey].(string)
	return id
}

func (s *gorillaSession) Attribute(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return "", false, ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return "", false, err
	}
	v, ok := s.raw.Values[attributeScope+name].(string)
	return v, ok, nil
}

func (s *gorillaSession) SetAttribute(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return err
	}
	s.raw.Values[attributeScope+name] = value
	return s.save()
}

func (s *gorillaSession) RemoveAttribute(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return err
	}
	if _, ok := s.raw.Values[attributeScope+name]; !ok {
		return nil
	}
	delete(s.raw.Values, attributeScope+name)
	return s.save()
}

// Regenerate issues a new id. Stores keyed by the gorilla session ID
// allocate a fresh record on save.
func (s *gorillaSession) Regenerate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return ErrSessionInvalidated
	}
	s.raw.Values[gorillaIDKey] = uuid.NewString()
	s.raw.ID = ""
	return s.save()
}

func (s *gorillaSession) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return nil
	}

	for k := range s.raw.Values {
		delete(s.raw.Values, k)
	}
	opts := sessions.Options{Path: "/", MaxAge: -1}
	if s.raw.Options != nil {
		opts = *s.raw.Options
		opts.MaxAge = -1
	}
	s.raw.Options = &opts

	if err := s.save(); err != nil {
		return err
	}
	s.invalidated = true
	return nil
}

func (s *gorillaSession) save() error {
	if err := s.store.Save(s.r, s.w, s.raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
