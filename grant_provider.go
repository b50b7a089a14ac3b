package goAuthWeb

import (
	"context"

	"github.com/MrEthical07/goAuthWeb/oauth"
)

// GrantProviderName identifies results produced by [GrantAuthenticationProvider].
const GrantProviderName = "grant"

// GrantAuthenticationProvider exchanges the attempt's credentials against
// the remote identity service with the password grant.
//
// The application is taken from the attempt, then from the context (see
// [WithApplication]), then from the configured default.
type GrantAuthenticationProvider struct {
	authenticator *oauth.Authenticator
	defaultApp    *oauth.Application
}

// NewGrantAuthenticationProvider describes the newgrantauthenticationprovider operation and its observable behavior.
//
// defaultApp may be nil when every call supplies its own application.
func NewGrantAuthenticationProvider(authenticator *oauth.Authenticator, defaultApp *oauth.Application) *GrantAuthenticationProvider {
	if authenticator == nil {
		authenticator = oauth.NewAuthenticator()
	}
	return &GrantAuthenticationProvider{authenticator: authenticator, defaultApp: defaultApp}
}

func (p *GrantAuthenticationProvider) Name() string {
	return GrantProviderName
}

// Authenticate runs exactly one exchange. A nil application fails with
// [ErrConfiguration] before any network call.
func (p *GrantAuthenticationProvider) Authenticate(ctx context.Context, attempt LoginAttempt) (*AuthenticationResult, error) {
	app := resolveApplication(ctx, attempt.Application, p.defaultApp)

	req := oauth.NewPasswordGrantRequest(attempt.Login, attempt.Password)
	if attempt.GrantType != "" {
		req = req.WithGrantType(attempt.GrantType)
	}
	if attempt.AccountStore != "" {
		req = req.WithAccountStore(attempt.AccountStore)
	}

	grant, err := p.authenticator.Authenticate(ctx, app, req)
	if err != nil {
		return nil, err
	}

	return NewAuthenticationResult(attempt.Login, GrantProviderName, app.Href, grant, grant.IssuedAt()), nil
}

func resolveApplication(ctx context.Context, explicit, fallback *oauth.Application) *oauth.Application {
	if explicit != nil {
		return explicit
	}
	if app, ok := ApplicationFromContext(ctx); ok {
		return app
	}
	return fallback
}
