package csrf

import "context"

type tokenContextKey struct{}

// WithToken attaches the session's token to ctx so handlers can render it.
func WithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, tok)
}

// TokenFromContext returns the token attached by [WithToken].
func TokenFromContext(ctx context.Context) (Token, bool) {
	if ctx == nil {
		return Token{}, false
	}
	tok, ok := ctx.Value(tokenContextKey{}).(Token)
	return tok, ok
}
