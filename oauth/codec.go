package oauth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	formLogin        = "login"
	formPassword     = "password"
	formGrantType    = "grant_type"
	formAccountStore = "account_store"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// EncodeGrantRequest renders req as the form body of the create call.
// account_store is only present when set.
func EncodeGrantRequest(req PasswordGrantRequest) url.Values {
	grantType := req.grantType
	if grantType == "" {
		grantType = GrantTypePassword
	}

	values := url.Values{}
	values.Set(formLogin, req.login)
	values.Set(formPassword, req.password)
	values.Set(formGrantType, string(grantType))
	if req.accountStore != "" {
		values.Set(formAccountStore, req.accountStore)
	}
	return values
}

// DecodeGrantToken parses the create-call response body.
func DecodeGrantToken(r io.Reader) (GrantAuthenticationToken, error) {
	var tok GrantAuthenticationToken
	if err := json.NewDecoder(r).Decode(&tok); err != nil {
		return GrantAuthenticationToken{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tok.AccessToken = strings.TrimSpace(tok.AccessToken)
	tok.AccessTokenHref = strings.TrimSpace(tok.AccessTokenHref)
	tok.TokenType = strings.TrimSpace(tok.TokenType)

	switch {
	case tok.AccessToken == "":
		return GrantAuthenticationToken{}, fmt.Errorf("%w: missing access_token", ErrMalformedResponse)
	case tok.AccessTokenHref == "":
		return GrantAuthenticationToken{}, fmt.Errorf("%w: missing access_token_href", ErrMalformedResponse)
	case !isAbsoluteHTTPURL(tok.AccessTokenHref):
		return GrantAuthenticationToken{}, fmt.Errorf("%w: access_token_href is not an absolute url", ErrMalformedResponse)
	case tok.TokenType == "":
		return GrantAuthenticationToken{}, fmt.Errorf("%w: missing token_type", ErrMalformedResponse)
	case tok.ExpiresIn < 0:
		return GrantAuthenticationToken{}, fmt.Errorf("%w: negative expires_in", ErrMalformedResponse)
	}

	return tok, nil
}

// DecodeAccessToken parses the resolve-call response body.
func DecodeAccessToken(r io.Reader) (AccessToken, error) {
	var at AccessToken
	if err := json.NewDecoder(r).Decode(&at); err != nil {
		return AccessToken{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return at, nil
}

type remoteError struct {
	Status           int             `json:"status"`
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// decodeRemoteError extracts a code and message from either an OAuth error
// body ({error, error_description}) or a resource error body ({code, message}).
func decodeRemoteError(body []byte) (code string, message string) {
	if len(body) == 0 {
		return "", ""
	}

	var re remoteError
	if err := json.Unmarshal(body, &re); err != nil {
		return "", ""
	}

	if re.Error != "" {
		return re.Error, truncateMessage(re.ErrorDescription)
	}

	code = strings.Trim(strings.TrimSpace(string(re.Code)), `"`)
	if code == "null" {
		code = ""
	}
	return code, truncateMessage(re.Message)
}
