package oauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenPath is appended to the application href to build the token endpoint.
const TokenPath = "/oauth/token"

// GrantType names an OAuth grant. Only the password grant is exchanged here.
type GrantType string

const (
	// GrantTypePassword is the resource-owner password credentials grant.
	GrantTypePassword GrantType = "password"
)

// Application is the tenant context against which credentials are exchanged.
type Application struct {
	Href string
	Name string
}

func (a *Application) tokenEndpoint() (string, error) {
	if a == nil || strings.TrimSpace(a.Href) == "" {
		return "", ErrApplicationRequired
	}
	if !isAbsoluteHTTPURL(a.Href) {
		return "", fmt.Errorf("%w: application href must be an absolute http(s) url", ErrConfiguration)
	}
	return strings.TrimRight(a.Href, "/") + TokenPath, nil
}

// PasswordGrantRequest carries one password-grant attempt. It is an immutable
// value: the With* methods return modified copies.
type PasswordGrantRequest struct {
	login        string
	password     string
	grantType    GrantType
	accountStore string
}

// NewPasswordGrantRequest builds a password-grant request for login and password.
func NewPasswordGrantRequest(login, password string) PasswordGrantRequest {
	return PasswordGrantRequest{
		login:     login,
		password:  password,
		grantType: GrantTypePassword,
	}
}

// WithAccountStore returns a copy that targets the given account store href.
func (r PasswordGrantRequest) WithAccountStore(href string) PasswordGrantRequest {
	r.accountStore = strings.TrimSpace(href)
	return r
}

// WithGrantType returns a copy with grant type t. An empty t keeps the password grant.
func (r PasswordGrantRequest) WithGrantType(t GrantType) PasswordGrantRequest {
	if t == "" {
		t = GrantTypePassword
	}
	r.grantType = t
	return r
}

func (r PasswordGrantRequest) Login() string        { return r.login }
func (r PasswordGrantRequest) Password() string     { return r.password }
func (r PasswordGrantRequest) GrantType() GrantType { return r.grantType }
func (r PasswordGrantRequest) AccountStore() string { return r.accountStore }

// String never includes the password.
func (r PasswordGrantRequest) String() string {
	return fmt.Sprintf("PasswordGrantRequest{login=%q grant_type=%s account_store=%q password=[REDACTED]}",
		r.login, r.grantType, r.accountStore)
}

// GoString keeps %#v from printing the password.
func (r PasswordGrantRequest) GoString() string {
	return r.String()
}

// GrantAuthenticationToken is the token response of the create call.
type GrantAuthenticationToken struct {
	AccessToken     string `json:"access_token"`
	AccessTokenHref string `json:"access_token_href"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int64  `json:"expires_in"`
}

// OAuth2Token converts the response into an [oauth2.Token] so it can be handed
// to oauth2-aware HTTP clients. Expiry is computed relative to issuedAt.
func (t GrantAuthenticationToken) OAuth2Token(issuedAt time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]interface{}{
		"access_token_href": t.AccessTokenHref,
	})
}

func (t GrantAuthenticationToken) String() string {
	return fmt.Sprintf("GrantAuthenticationToken{href=%q token_type=%s expires_in=%d access_token=[REDACTED]}",
		t.AccessTokenHref, t.TokenType, t.ExpiresIn)
}

func (t GrantAuthenticationToken) GoString() string {
	return t.String()
}

// Link is a reference to another remote resource.
type Link struct {
	Href string `json:"href"`
}

// AccessToken is the remote access-token resource fetched during resolution.
type AccessToken struct {
	Href        string `json:"href"`
	JWT         string `json:"jwt"`
	Account     Link   `json:"account"`
	Application Link   `json:"application"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

func (t AccessToken) String() string {
	return fmt.Sprintf("AccessToken{href=%q account=%q jwt=[REDACTED]}", t.Href, t.Account.Href)
}

// GrantResult is the outcome of a successful exchange. It is only produced
// after both the create and the resolve calls succeeded.
type GrantResult struct {
	token       GrantAuthenticationToken
	accessToken AccessToken
	issuedAt    time.Time
}

func newGrantResult(token GrantAuthenticationToken, resolved AccessToken, issuedAt time.Time) *GrantResult {
	return &GrantResult{
		token:       token,
		accessToken: resolved,
		issuedAt:    issuedAt,
	}
}

func (r *GrantResult) Token() GrantAuthenticationToken { return r.token }
func (r *GrantResult) AccessToken() string             { return r.token.AccessToken }
func (r *GrantResult) AccessTokenHref() string         { return r.token.AccessTokenHref }
func (r *GrantResult) RefreshToken() string            { return r.token.RefreshToken }
func (r *GrantResult) TokenType() string               { return r.token.TokenType }
func (r *GrantResult) ExpiresIn() int64                { return r.token.ExpiresIn }
func (r *GrantResult) IssuedAt() time.Time             { return r.issuedAt }

// AccessTokenResource returns the resolved remote resource. It is kept for
// callers that want the account link; the exchange only uses it for validation.
func (r *GrantResult) AccessTokenResource() AccessToken { return r.accessToken }

// ExpiresAt returns the absolute expiry, or the zero time when the service sent none.
func (r *GrantResult) ExpiresAt() time.Time {
	if r.token.ExpiresIn <= 0 {
		return time.Time{}
	}
	return r.issuedAt.Add(time.Duration(r.token.ExpiresIn) * time.Second)
}

func (r *GrantResult) String() string {
	return "GrantResult{" + r.token.String() + "}"
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
