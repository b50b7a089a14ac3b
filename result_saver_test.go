package goAuthWeb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthWeb/jwt"
	"github.com/MrEthical07/goAuthWeb/session"
	"github.com/stretchr/testify/require"
)

func testCookieSaver(t *testing.T) *CookieResultSaver {
	t.Helper()
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goauthweb-test",
	})
	require.NoError(t, err)
	return NewCookieResultSaver(jm, CookieOptions{Secure: true})
}

func testResult() *AuthenticationResult {
	return NewAuthenticationResult("alice", "local", testAppHref, nil, time.Now())
}

func TestSessionResultSaverRoundTrip(t *testing.T) {
	saver := NewSessionResultSaver("")
	ctx := session.WithSession(context.Background(), newMemSession(nil))

	_, err := saver.Get(ctx, nil)
	require.ErrorIs(t, err, ErrResultNotFound)

	require.NoError(t, saver.Set(ctx, nil, nil, testResult()))
	p, err := saver.Get(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Login)
	require.Equal(t, "local", p.Provider)

	require.NoError(t, saver.Clear(ctx, nil, nil))
	_, err = saver.Get(ctx, nil)
	require.ErrorIs(t, err, ErrResultNotFound)
}

func TestSessionResultSaverRequiresSession(t *testing.T) {
	saver := NewSessionResultSaver("")
	require.ErrorIs(t, saver.Set(context.Background(), nil, nil, testResult()), ErrSessionRequired)
	require.NoError(t, saver.Clear(context.Background(), nil, nil))
}

func TestSessionResultSaverHidesExpiredPrincipal(t *testing.T) {
	saver := NewSessionResultSaver("")
	saver.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sess := newMemSession(nil)
	ctx := session.WithSession(context.Background(), sess)

	require.NoError(t, sess.SetAttribute(ctx, DefaultPrincipalAttribute,
		`{"login":"alice","provider":"grant","expires_at":"`+time.Now().Add(time.Hour).UTC().Format(time.RFC3339)+`"}`))
	_, err := saver.Get(ctx, nil)
	require.ErrorIs(t, err, ErrResultNotFound)
}

func TestCookieResultSaverRoundTrip(t *testing.T) {
	saver := testCookieSaver(t)
	rec := httptest.NewRecorder()
	require.NoError(t, saver.Set(context.Background(), rec, nil, testResult()))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	require.Equal(t, "account", ck.Name)
	require.True(t, ck.HttpOnly)
	require.True(t, ck.Secure)
	require.Greater(t, ck.MaxAge, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	p, err := saver.Get(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Login)
	require.Equal(t, "local", p.Provider)
	require.Equal(t, testAppHref, p.Application)
	require.False(t, p.AuthenticatedAt.IsZero())

	cleared := httptest.NewRecorder()
	require.NoError(t, saver.Clear(context.Background(), cleared, req))
	require.Equal(t, -1, cleared.Result().Cookies()[0].MaxAge)
}

func TestCookieMaxAge(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int
		wantErr   bool
	}{
		{name: "no grant expiry", want: 3600},
		{name: "grant outlives ttl", expiresAt: now.Add(2 * time.Hour), want: 3600},
		{name: "grant shorter than ttl", expiresAt: now.Add(90 * time.Second), want: 90},
		{name: "sub-second remainder", expiresAt: now.Add(300 * time.Millisecond), want: 1},
		{name: "fractional seconds round up", expiresAt: now.Add(1500 * time.Millisecond), want: 2},
		{name: "expires now", expiresAt: now, wantErr: true},
		{name: "already expired", expiresAt: now.Add(-time.Minute), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cookieMaxAge(time.Hour, tt.expiresAt, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Greater(t, got, 0, "a zero max-age would outlive the grant as a session cookie")
		})
	}
}

func TestCookieResultSaverRejectsForgedCookie(t *testing.T) {
	saver := testCookieSaver(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "account", Value: "eyJhbGciOiJub25lIn0.eyJzdWIiOiJtYWxsb3J5In0."})
	_, err := saver.Get(context.Background(), req)
	require.ErrorIs(t, err, ErrResultNotFound)
}

func TestCompositeResultSaver(t *testing.T) {
	var log []string
	sessionSaver := &recordingSaver{inner: NewSessionResultSaver(""), log: &log}
	cookieSaver := testCookieSaver(t)
	composite := NewCompositeResultSaver(sessionSaver, nil, cookieSaver)
	ctx := session.WithSession(context.Background(), newMemSession(nil))

	rec := httptest.NewRecorder()
	require.NoError(t, composite.Set(ctx, rec, nil, testResult()))
	require.Len(t, rec.Result().Cookies(), 1)

	p, err := composite.Get(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, "alice", p.Login)

	// Only the cookie is left: Get falls through to it.
	require.NoError(t, sessionSaver.Clear(ctx, nil, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	p, err = composite.Get(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Login)

	sessionSaver.failClr = errBoom
	out := httptest.NewRecorder()
	err = composite.Clear(ctx, out, req)
	require.ErrorIs(t, err, errBoom)
	require.Len(t, out.Result().Cookies(), 1, "later savers are cleared despite an earlier failure")
}

func TestLoginAttemptRedactsPassword(t *testing.T) {
	a := LoginAttempt{Login: "alice", Password: "s3cret"}
	require.NotContains(t, a.String(), "s3cret")
	require.NotContains(t, a.GoString(), "s3cret")
}
