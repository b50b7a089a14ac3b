package goAuthWeb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goAuthWeb/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testAppHref   = "https://id.example.com/v1/applications/app1"
	testTokenHref = "https://x/accessTokens/1"
)

// identityStub answers grant exchanges without a network.
type identityStub struct {
	mu       sync.Mutex
	routes   map[string]stubReply
	requests []string
	forms    []string
}

type stubReply struct {
	status int
	body   string
}

func newIdentityStub() *identityStub {
	return &identityStub{routes: map[string]stubReply{}}
}

func (s *identityStub) on(method, rawURL string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+rawURL] = stubReply{status: status, body: body}
}

func (s *identityStub) happy(appHref string) *identityStub {
	s.on(http.MethodPost, appHref+"/oauth/token", http.StatusOK,
		`{"access_token":"AT1","access_token_href":"`+testTokenHref+`","refresh_token":"RT1","token_type":"Bearer","expires_in":3600}`)
	s.on(http.MethodGet, testTokenHref, http.StatusOK,
		`{"href":"`+testTokenHref+`","jwt":"AT1","account":{"href":"https://x/accounts/42"},"application":{"href":"`+appHref+`"}}`)
	return s
}

func (s *identityStub) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := req.Method + " " + req.URL.String()
	s.requests = append(s.requests, key)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		s.forms = append(s.forms, string(raw))
	}

	reply, ok := s.routes[key]
	if !ok {
		reply = stubReply{status: http.StatusNotFound, body: `{"status":404,"message":"not found"}`}
	}
	return &http.Response{
		StatusCode: reply.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(reply.body)),
		Request:    req,
	}, nil
}

func (s *identityStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Application.Href = testAppHref
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, stub *identityStub, extra ...func(*Builder)) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	b := New().WithConfig(cfg).WithRedis(rdb).WithHTTPClient(stub)
	for _, fn := range extra {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

// newSessionContext creates a Redis session the way the session middleware would.
func newSessionContext(t *testing.T, e *Engine) (context.Context, session.Session) {
	t.Helper()
	sess, err := e.sessionStore.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session.WithSession(context.Background(), sess), sess
}

// memSession is an in-memory session that records lifecycle calls into log.
type memSession struct {
	mu          sync.Mutex
	attrs       map[string]string
	invalidated bool
	log         *[]string
	failRemove  error
	generation  int
}

func newMemSession(log *[]string) *memSession {
	return &memSession{attrs: map[string]string{}, log: log}
}

func (s *memSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("mem-%d", s.generation+1)
}

func (s *memSession) Regenerate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log != nil {
		*s.log = append(*s.log, "regenerate")
	}
	if s.invalidated {
		return session.ErrSessionInvalidated
	}
	s.generation++
	return nil
}

func (s *memSession) Attribute(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return "", false, session.ErrSessionInvalidated
	}
	v, ok := s.attrs[name]
	return v, ok, nil
}

func (s *memSession) SetAttribute(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return session.ErrSessionInvalidated
	}
	s.attrs[name] = value
	return nil
}

func (s *memSession) RemoveAttribute(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove != nil {
		return s.failRemove
	}
	if s.invalidated {
		return session.ErrSessionInvalidated
	}
	delete(s.attrs, name)
	return nil
}

func (s *memSession) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log != nil {
		*s.log = append(*s.log, "invalidate")
	}
	s.invalidated = true
	s.attrs = map[string]string{}
	return nil
}

// recordingSaver wraps a ResultSaver and logs each call.
type recordingSaver struct {
	inner   ResultSaver
	log     *[]string
	failSet error
	failClr error
}

func (s *recordingSaver) Set(ctx context.Context, w http.ResponseWriter, r *http.Request, res *AuthenticationResult) error {
	*s.log = append(*s.log, "set")
	if s.failSet != nil {
		return s.failSet
	}
	return s.inner.Set(ctx, w, r, res)
}

func (s *recordingSaver) Get(ctx context.Context, r *http.Request) (*Principal, error) {
	return s.inner.Get(ctx, r)
}

func (s *recordingSaver) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	*s.log = append(*s.log, "clear")
	if s.failClr != nil {
		return s.failClr
	}
	return s.inner.Clear(ctx, w, r)
}

type recordingSuccess struct {
	log *[]string
}

func (h recordingSuccess) OnAuthenticationSuccess(context.Context, http.ResponseWriter, *http.Request, *AuthenticationResult) error {
	*h.log = append(*h.log, "success")
	return nil
}

func (h recordingSuccess) OnLogoutSuccess(context.Context, http.ResponseWriter, *http.Request) error {
	*h.log = append(*h.log, "logout_success")
	return nil
}

var errBoom = errors.New("boom")
