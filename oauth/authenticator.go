package oauth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxResponseBytes int64 = 1 << 20
	defaultUserAgent              = "goAuthWeb/1.0"
	defaultTimeout                = 10 * time.Second
)

// Doer executes outbound HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures an [Authenticator].
type Option func(*Authenticator)

// WithHTTPClient sets the transport used for both round trips. Timeouts are
// the transport's responsibility.
func WithHTTPClient(client Doer) Option {
	return func(a *Authenticator) {
		if client != nil {
			a.client = client
		}
	}
}

// WithAPIKey authenticates the service itself to the identity service with
// HTTP basic credentials.
func WithAPIKey(id, secret string) Option {
	return func(a *Authenticator) {
		a.apiKeyID = id
		a.apiKeySecret = secret
	}
}

// WithMaxResponseBytes bounds how much of each response body is read.
func WithMaxResponseBytes(n int64) Option {
	return func(a *Authenticator) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(a *Authenticator) {
		if strings.TrimSpace(ua) != "" {
			a.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for debug tracing of the exchange.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// Authenticator performs password-grant exchanges. It holds no per-tenant
// state and is safe for concurrent use.
type Authenticator struct {
	client       Doer
	apiKeyID     string
	apiKeySecret string
	maxBody      int64
	userAgent    string
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthenticator builds an Authenticator. Without [WithHTTPClient] it uses an
// *http.Client with a 10s timeout.
func NewAuthenticator(opts ...Option) *Authenticator {
	a := &Authenticator{
		client:    &http.Client{Timeout: defaultTimeout},
		maxBody:   defaultMaxResponseBytes,
		userAgent: defaultUserAgent,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Authenticate exchanges req against app and resolves the issued access token.
//
// A nil app fails with [ErrApplicationRequired]; an empty login or password
// fails with [ErrInvalidRequest] before any network call. Remote failures are
// reported as *[GrantError]. No partial result is ever returned.
func (a *Authenticator) Authenticate(ctx context.Context, app *Application, req PasswordGrantRequest) (*GrantResult, error) {
	endpoint, err := app.tokenEndpoint()
	if err != nil {
		return nil, err
	}
	if req.login == "" || req.password == "" {
		return nil, ErrInvalidRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}

	issuedAt := a.now().UTC()

	token, err := a.createToken(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	resolved, err := a.resolveAccessToken(ctx, endpoint, token)
	if err != nil {
		return nil, err
	}

	return newGrantResult(token, resolved, issuedAt), nil
}

// ForApplication returns a new authenticator bound to a copy of app.
// The receiver is not modified.
func (a *Authenticator) ForApplication(app *Application) (*BoundAuthenticator, error) {
	if _, err := app.tokenEndpoint(); err != nil {
		return nil, err
	}
	return &BoundAuthenticator{
		authenticator: a,
		app:           *app,
	}, nil
}

// BoundAuthenticator is an [Authenticator] fixed to one application.
type BoundAuthenticator struct {
	authenticator *Authenticator
	app           Application
}

// Application returns a copy of the bound application.
func (b *BoundAuthenticator) Application() Application {
	return b.app
}

// Authenticate runs the exchange against the bound application.
func (b *BoundAuthenticator) Authenticate(ctx context.Context, req PasswordGrantRequest) (*GrantResult, error) {
	app := b.app
	return b.authenticator.Authenticate(ctx, &app, req)
}

func (a *Authenticator) createToken(ctx context.Context, endpoint string, req PasswordGrantRequest) (GrantAuthenticationToken, error) {
	form := EncodeGrantRequest(req).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return GrantAuthenticationToken{}, &GrantError{Op: OpCreate, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentTypeForm)

	body, err := a.do(httpReq, OpCreate, true)
	if err != nil {
		return GrantAuthenticationToken{}, err
	}

	token, err := DecodeGrantToken(bytes.NewReader(body))
	if err != nil {
		return GrantAuthenticationToken{}, &GrantError{Op: OpCreate, Err: err}
	}

	a.logger.Debug("grant token created",
		zap.String("access_token_href", token.AccessTokenHref),
		zap.String("token_type", token.TokenType),
		zap.Int64("expires_in", token.ExpiresIn),
	)
	return token, nil
}

// resolveAccessToken fetches the issued token resource. API key credentials
// are only sent when the href shares the token endpoint's origin.
func (a *Authenticator) resolveAccessToken(ctx context.Context, endpoint string, token GrantAuthenticationToken) (AccessToken, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, token.AccessTokenHref, nil)
	if err != nil {
		return AccessToken{}, &GrantError{Op: OpResolve, Err: err}
	}

	trusted := sameOrigin(endpoint, httpReq.URL)
	if !trusted && a.apiKeyID != "" {
		a.logger.Debug("access token href is cross-origin, sending without api key",
			zap.String("access_token_href", token.AccessTokenHref),
		)
	}

	body, err := a.do(httpReq, OpResolve, trusted)
	if err != nil {
		return AccessToken{}, err
	}

	resolved, err := DecodeAccessToken(bytes.NewReader(body))
	if err != nil {
		return AccessToken{}, &GrantError{Op: OpResolve, Err: err}
	}
	if resolved.Href == "" && resolved.JWT == "" {
		return AccessToken{}, &GrantError{Op: OpResolve, Err: fmt.Errorf("%w: resolved token has neither href nor jwt", ErrMalformedResponse)}
	}
	if resolved.Href != "" && resolved.Href != token.AccessTokenHref {
		return AccessToken{}, &GrantError{Op: OpResolve, Err: fmt.Errorf("%w: resolved href does not match", ErrMalformedResponse)}
	}
	if resolved.JWT != "" && resolved.JWT != token.AccessToken {
		return AccessToken{}, &GrantError{Op: OpResolve, Err: fmt.Errorf("%w: resolved token does not match", ErrMalformedResponse)}
	}

	a.logger.Debug("access token resolved",
		zap.String("access_token_href", token.AccessTokenHref),
		zap.String("account", resolved.Account.Href),
	)
	return resolved, nil
}

func (a *Authenticator) do(req *http.Request, op string, withAPIKey bool) ([]byte, error) {
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", a.userAgent)
	if withAPIKey && a.apiKeyID != "" {
		req.SetBasicAuth(a.apiKeyID, a.apiKeySecret)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &GrantError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBody+1))
	if err != nil {
		return nil, &GrantError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > a.maxBody {
		return nil, &GrantError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedResponse, a.maxBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, message := decodeRemoteError(body)
		a.logger.Debug("grant exchange rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", code),
		)
		return nil, &GrantError{
			Op:      op,
			Status:  resp.StatusCode,
			Code:    code,
			Message: message,
		}
	}

	return body, nil
}

func sameOrigin(endpoint string, target *url.URL) bool {
	base, err := url.Parse(endpoint)
	if err != nil || target == nil {
		return false
	}
	return strings.EqualFold(base.Scheme, target.Scheme) && strings.EqualFold(base.Host, target.Host)
}
