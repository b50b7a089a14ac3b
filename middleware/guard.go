package middleware

import (
	"context"
	"errors"
	"net/http"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by [Filter] or [Guard].
func PrincipalFromContext(ctx context.Context) (*goAuthWeb.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*goAuthWeb.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p *goAuthWeb.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard rejects requests without a stored principal with 401. It expects a
// session already attached, e.g. by Engine.SessionMiddleware.
func Guard(engine *goAuthWeb.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p, err := engine.CurrentPrincipal(r.Context(), r)
			if err != nil {
				if !isNotFound(err) {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				engine.RecordChallenge(r.Context(), r)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, goAuthWeb.ErrResultNotFound)
}
