package oauth

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestEncodeGrantRequestOmitsEmptyAccountStore(t *testing.T) {
	values := EncodeGrantRequest(NewPasswordGrantRequest("alice", "pw"))
	require.Equal(t, "alice", values.Get(formLogin))
	require.Equal(t, "pw", values.Get(formPassword))
	require.Equal(t, "password", values.Get(formGrantType))
	require.False(t, values.Has(formAccountStore))

	values = EncodeGrantRequest(NewPasswordGrantRequest("alice", "pw").WithAccountStore(" https://x/dirs/1 "))
	require.Equal(t, "https://x/dirs/1", values.Get(formAccountStore))
}

func TestEncodeGrantRequestEscapesSpecialCharacters(t *testing.T) {
	encoded := EncodeGrantRequest(NewPasswordGrantRequest("a+b@example.com", "p&ss=w rd")).Encode()
	require.Contains(t, encoded, "login=a%2Bb%40example.com")
	require.Contains(t, encoded, "password=p%26ss%3Dw+rd")
}

func TestDecodeGrantTokenOptionalRefreshToken(t *testing.T) {
	tok, err := DecodeGrantToken(strings.NewReader(`{"access_token":"AT1","access_token_href":"https://x/accessTokens/1","token_type":"Bearer","expires_in":10}`))
	require.NoError(t, err)
	require.Empty(t, tok.RefreshToken)
	require.Equal(t, "AT1", tok.AccessToken)
}

func TestDecodeRemoteErrorShapes(t *testing.T) {
	code, msg := decodeRemoteError([]byte(`{"error":"invalid_grant","error_description":"bad"}`))
	require.Equal(t, "invalid_grant", code)
	require.Equal(t, "bad", msg)

	code, msg = decodeRemoteError([]byte(`{"status":400,"code":"7104","message":"not found"}`))
	require.Equal(t, "7104", code)
	require.Equal(t, "not found", msg)

	code, msg = decodeRemoteError([]byte(`{"message":"` + strings.Repeat("m", 400) + `"}`))
	require.Empty(t, code)
	require.Len(t, msg, maxRemoteMessage)

	code, msg = decodeRemoteError([]byte(`{"message":"a` + strings.Repeat("é", 200) + `"}`))
	require.Empty(t, code)
	require.True(t, utf8.ValidString(msg))
	require.Len(t, msg, maxRemoteMessage-1)

	code, msg = decodeRemoteError(nil)
	require.Empty(t, code)
	require.Empty(t, msg)
}

func TestGrantTokenOAuth2Conversion(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := GrantAuthenticationToken{
		AccessToken:     "AT1",
		AccessTokenHref: "https://x/accessTokens/1",
		RefreshToken:    "RT1",
		TokenType:       "Bearer",
		ExpiresIn:       3600,
	}

	o := tok.OAuth2Token(issued)
	require.Equal(t, "AT1", o.AccessToken)
	require.Equal(t, "RT1", o.RefreshToken)
	require.Equal(t, "Bearer", o.Type())
	require.Equal(t, issued.Add(time.Hour), o.Expiry)
	require.Equal(t, "https://x/accessTokens/1", o.Extra("access_token_href"))

	require.NotContains(t, tok.String(), "AT1")
}

func TestGrantErrorInvalidGrantOnlyOnCreate(t *testing.T) {
	require.True(t, (&GrantError{Op: OpCreate, Status: 401}).InvalidGrant())
	require.False(t, (&GrantError{Op: OpResolve, Status: 401}).InvalidGrant())
	require.False(t, (&GrantError{Op: OpCreate, Status: 400, Code: "invalid_request"}).InvalidGrant())
	require.True(t, (&GrantError{Op: OpCreate, Status: 400, Code: "7199"}).InvalidGrant())
	require.False(t, (&GrantError{Op: OpCreate, Status: 400, Code: "7200"}).InvalidGrant())
}
