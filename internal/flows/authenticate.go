package flows

import (
	"context"
	"errors"
	"fmt"
)

// AuthenticateDeps captures credential verification dependencies. R is the
// host's authentication result type.
type AuthenticateDeps[R any] struct {
	Application string
	Provider    string

	CheckLoginRate     func(ctx context.Context, application, login string) error
	IncrementLoginRate func(ctx context.Context, application, login string) error
	ResetLoginRate     func(ctx context.Context, application, login string) error
	IsRateLimited      func(error) bool

	Provide func(ctx context.Context) (R, error)

	Observers
	Metrics Metrics
	Events  Events
	Errors  Errors
}

// RunAuthenticate verifies one login attempt. Empty credentials fail before
// any throttle or provider call. A throttled login never reaches the
// provider. Only credential rejections count against the throttle.
func RunAuthenticate[R any](ctx context.Context, login, password string, deps AuthenticateDeps[R]) (R, error) {
	var zero R
	deps.Observers = deps.Observers.withDefaults()
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.Provide == nil {
		return zero, deps.Errors.EngineNotReady
	}

	meta := func(reason string) func() map[string]string {
		return func() map[string]string {
			m := map[string]string{"provider": deps.Provider}
			if reason != "" {
				m["reason"] = reason
			}
			return m
		}
	}

	if login == "" || password == "" {
		deps.MetricInc(deps.Metrics.InvalidCredentials)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, login, deps.Errors.InvalidCredentials, meta("empty_credentials"))
		return zero, deps.Errors.InvalidCredentials
	}

	rateLimited := func(cause error) (R, error) {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, login, deps.Errors.LoginRateLimited, meta(""))
		if cause != nil && !deps.IsRateLimited(cause) {
			deps.Warn("login throttle unavailable", cause)
		}
		return zero, deps.Errors.LoginRateLimited
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, deps.Application, login); err != nil {
			return rateLimited(err)
		}
	}

	start := deps.Now()
	result, err := deps.Provide(ctx)
	deps.Observe(deps.Metrics.GrantLatency, deps.Now().Sub(start))

	if err != nil {
		switch {
		case errors.Is(err, deps.Errors.InvalidCredentials):
			if deps.IncrementLoginRate != nil {
				if rerr := deps.IncrementLoginRate(ctx, deps.Application, login); rerr != nil && !deps.IsRateLimited(rerr) {
					deps.Warn("login throttle increment failed", rerr)
				}
			}
			deps.MetricInc(deps.Metrics.InvalidCredentials)
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, login, err, meta("invalid_credentials"))
		case errors.Is(err, deps.Errors.Configuration):
			deps.MetricInc(deps.Metrics.ConfigurationError)
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, login, err, meta("configuration"))
		default:
			deps.MetricInc(deps.Metrics.GrantExchangeFailure)
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.GrantExchangeFailed, false, login, err, meta("grant_exchange"))
		}
		return zero, err
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, deps.Application, login); err != nil {
			deps.Warn("login throttle reset failed", err)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, login, nil, meta(""))
	return result, nil
}

// wrap joins a host sentinel with the underlying cause so errors.Is matches both.
func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
