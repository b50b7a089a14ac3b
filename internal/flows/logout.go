package flows

import "context"

// LogoutDeps captures logout side effects.
type LogoutDeps struct {
	Login             string
	InvalidateSession bool

	Clear      func(ctx context.Context) error
	Invalidate func(ctx context.Context) error
	OnSuccess  func(ctx context.Context) error

	Observers
	Metrics Metrics
	Events  Events
	Errors  Errors
}

// RunLogout clears the stored result strictly before invalidating the
// session. A clear failure aborts before invalidation.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	deps.Observers = deps.Observers.withDefaults()
	if deps.Clear == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(stage string, err error) error {
		wrapped := wrap(deps.Errors.SessionInvalidationFailed, err)
		deps.EmitAudit(ctx, deps.Events.Logout, false, deps.Login, wrapped, func() map[string]string {
			return map[string]string{"stage": stage}
		})
		return wrapped
	}

	if err := deps.Clear(ctx); err != nil {
		return fail("clear", err)
	}
	deps.MetricInc(deps.Metrics.ResultCleared)

	if deps.InvalidateSession && deps.Invalidate != nil {
		if err := deps.Invalidate(ctx); err != nil {
			return fail("invalidate", err)
		}
		deps.MetricInc(deps.Metrics.SessionInvalidated)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, deps.Login, nil, nil)

	if deps.OnSuccess != nil {
		return deps.OnSuccess(ctx)
	}
	return nil
}
