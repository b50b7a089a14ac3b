package goAuthWeb

import (
	"context"
	"net/http"
)

// RedirectSuccessHandler sends the browser to a fixed location after login.
type RedirectSuccessHandler struct {
	Location string
}

// OnAuthenticationSuccess writes a 302. Programmatic callers without a
// response writer get a no-op.
func (h RedirectSuccessHandler) OnAuthenticationSuccess(_ context.Context, w http.ResponseWriter, r *http.Request, _ *AuthenticationResult) error {
	redirect(w, r, h.Location)
	return nil
}

// RedirectLogoutSuccessHandler sends the browser to a fixed location after logout.
type RedirectLogoutSuccessHandler struct {
	Location string
}

func (h RedirectLogoutSuccessHandler) OnLogoutSuccess(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	redirect(w, r, h.Location)
	return nil
}

// SaverLogoutHandler clears the persisted result through a [ResultSaver].
type SaverLogoutHandler struct {
	Saver ResultSaver
}

func (h SaverLogoutHandler) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Saver == nil {
		return nil
	}
	return h.Saver.Clear(ctx, w, r)
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if w == nil || r == nil || location == "" {
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}
