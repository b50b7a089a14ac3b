package csrf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type memoryStore struct {
	mu      sync.Mutex
	attrs   map[string]string
	readErr error
	sets    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{attrs: map[string]string{}}
}

func (s *memoryStore) Attribute(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", false, s.readErr
	}
	v, ok := s.attrs[name]
	return v, ok, nil
}

func (s *memoryStore) SetAttribute(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[name] = value
	s.sets++
	return nil
}

func enabledManager() *Manager {
	return NewManager(Config{Enabled: true})
}

func TestGenerateTokenIsLazyAndStable(t *testing.T) {
	m := enabledManager()
	store := newMemoryStore()
	ctx := context.Background()

	if _, ok, err := m.LoadToken(ctx, store); err != nil || ok {
		t.Fatalf("expected no token before generation, ok=%v err=%v", ok, err)
	}

	first, err := m.GenerateToken(ctx, store)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if first.Value == "" {
		t.Fatal("expected non-empty token")
	}
	if first.AttributeName != "csrfToken" || first.ParameterName != "csrfToken" {
		t.Fatalf("unexpected names: %+v", first)
	}
	if store.attrs["csrfToken"] != first.Value {
		t.Fatal("token was not stored under csrfToken")
	}

	second, err := m.GenerateToken(ctx, store)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if second.Value != first.Value {
		t.Fatal("expected one active token per session")
	}
	if store.sets != 1 {
		t.Fatalf("expected a single store write, got %d", store.sets)
	}
}

func TestTokensDifferAcrossSessions(t *testing.T) {
	m := enabledManager()
	a, err := m.GenerateToken(context.Background(), newMemoryStore())
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	b, err := m.GenerateToken(context.Background(), newMemoryStore())
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if a.Value == b.Value {
		t.Fatal("expected distinct tokens for distinct sessions")
	}
}

func TestValidateToken(t *testing.T) {
	m := enabledManager()
	store := newMemoryStore()
	ctx := context.Background()

	tok, err := m.GenerateToken(ctx, store)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	cases := []struct {
		name      string
		submitted string
		wantErr   bool
	}{
		{name: "match", submitted: tok.Value},
		{name: "empty", submitted: "", wantErr: true},
		{name: "mismatch", submitted: tok.Value + "x", wantErr: true},
		{name: "prefix", submitted: tok.Value[:4], wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.ValidateToken(ctx, store, tc.submitted)
			if tc.wantErr && !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}

func TestValidateTokenWithoutStoredToken(t *testing.T) {
	m := enabledManager()
	if err := m.ValidateToken(context.Background(), newMemoryStore(), "anything"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if err := m.ValidateToken(context.Background(), nil, "anything"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for nil store, got %v", err)
	}
}

func TestValidateTokenStoreErrorDenies(t *testing.T) {
	m := enabledManager()
	store := newMemoryStore()
	store.attrs["csrfToken"] = "abc"
	store.readErr = errors.New("redis down")

	err := m.ValidateToken(context.Background(), store, "abc")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestDisabledManagerRefusesWork(t *testing.T) {
	m := NewManager(Config{Enabled: false})
	if m.Enabled() {
		t.Fatal("expected disabled manager")
	}
	if _, err := m.GenerateToken(context.Background(), newMemoryStore()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := m.ValidateToken(context.Background(), newMemoryStore(), "x"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestTokenFromRequestPrefersFormParameter(t *testing.T) {
	m := enabledManager()

	form := url.Values{"csrfToken": {"from-form"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-CSRF-Token", "from-header")
	if got := m.TokenFromRequest(r); got != "from-form" {
		t.Fatalf("expected form token, got %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/api", nil)
	r.Header.Set("X-CSRF-Token", " from-header ")
	if got := m.TokenFromRequest(r); got != "from-header" {
		t.Fatalf("expected header token, got %q", got)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := WithToken(context.Background(), Token{Value: "v"})
	tok, ok := TokenFromContext(ctx)
	if !ok || tok.Value != "v" {
		t.Fatalf("unexpected token from context: %+v ok=%v", tok, ok)
	}
	if _, ok := TokenFromContext(context.Background()); ok {
		t.Fatal("expected no token in empty context")
	}
}
