package oauth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrConfiguration is returned when the exchange is attempted without a usable application.
	ErrConfiguration = errors.New("configuration error")
	// ErrApplicationRequired is returned when the application is nil or has no href.
	ErrApplicationRequired = fmt.Errorf("%w: application cannot be null", ErrConfiguration)
	// ErrInvalidCredentials is returned when the end user supplied unusable credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRequest is returned before any network call when login or password is empty.
	ErrInvalidRequest = fmt.Errorf("%w: login and password are required", ErrInvalidCredentials)
	// ErrGrantExchangeFailed is matched by every [GrantError].
	ErrGrantExchangeFailed = errors.New("grant exchange failed")
	// ErrMalformedResponse is returned when the identity service answers with an unusable body.
	ErrMalformedResponse = errors.New("malformed grant response")
)

const (
	// OpCreate identifies the token creation call.
	OpCreate = "create"
	// OpResolve identifies the access-token resolution call.
	OpResolve = "resolve"
)

const maxRemoteMessage = 256

// GrantError reports a failed round trip to the identity service.
//
// It always matches [ErrGrantExchangeFailed]. When the remote rejected the
// credentials on the create call it also matches [ErrInvalidCredentials].
type GrantError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *GrantError) Error() string {
	var b strings.Builder
	b.WriteString(ErrGrantExchangeFailed.Error())
	b.WriteString(" (")
	b.WriteString(e.Op)
	b.WriteByte(')')
	if e.Status > 0 {
		b.WriteString(" status=")
		b.WriteString(strconv.Itoa(e.Status))
	}
	if e.Code != "" {
		b.WriteString(" code=")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GrantError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGrantExchangeFailed}
	}
	return []error{ErrGrantExchangeFailed, e.Err}
}

func (e *GrantError) Is(target error) bool {
	return target == ErrInvalidCredentials && e.InvalidGrant()
}

// InvalidGrant reports whether the identity service rejected the credentials
// themselves rather than failing for operational reasons.
func (e *GrantError) InvalidGrant() bool {
	if e == nil || e.Op != OpCreate {
		return false
	}
	switch e.Status {
	case 401:
		return true
	case 400:
		if e.Code == "invalid_grant" {
			return true
		}
		// Account-store credential failures are reported in the 7100 range.
		if n, err := strconv.Atoi(e.Code); err == nil && n >= 7100 && n < 7200 {
			return true
		}
	}
	return false
}

func truncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxRemoteMessage {
		return msg
	}
	cut := maxRemoteMessage
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
