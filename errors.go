package goAuthWeb

import (
	"errors"

	"github.com/MrEthical07/goAuthWeb/csrf"
	"github.com/MrEthical07/goAuthWeb/oauth"
)

var (
	// ErrConfiguration is an exported constant or variable used by the authentication engine.
	ErrConfiguration = oauth.ErrConfiguration
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = oauth.ErrInvalidCredentials
	// ErrGrantExchangeFailed is an exported constant or variable used by the authentication engine.
	ErrGrantExchangeFailed = oauth.ErrGrantExchangeFailed
	// ErrCsrfValidationFailed is an exported constant or variable used by the authentication engine.
	ErrCsrfValidationFailed = csrf.ErrValidationFailed
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionRequired is returned when Login or Logout runs without a session in context.
	ErrSessionRequired = errors.New("session required")
	// ErrSessionPersistFailed is returned when a verified result could not be stored.
	ErrSessionPersistFailed = errors.New("session persist failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the authentication engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrResultNotFound is returned by a [ResultSaver] when no principal is stored.
	ErrResultNotFound = errors.New("authentication result not found")
	// ErrFeatureDisabled is returned when an operation targets a disabled route.
	ErrFeatureDisabled = errors.New("feature disabled")
)
