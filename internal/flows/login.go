package flows

import "context"

// LoginDeps captures the side effects of an interactive login.
type LoginDeps[R any] struct {
	EnsureCSRF   func(ctx context.Context) error
	Authenticate func(ctx context.Context) (R, error)
	Regenerate   func(ctx context.Context) error
	Persist      func(ctx context.Context, result R) error
	Clear        func(ctx context.Context) error
	OnSuccess    func(ctx context.Context, result R) error

	Observers
	Metrics Metrics
	Errors  Errors
}

// RunLogin authenticates, then rotates the session id, then persists the
// result, then hands control to the success handler. Nothing is persisted
// when authentication or rotation fails. A failed persist is rolled back
// with a best-effort Clear.
func RunLogin[R any](ctx context.Context, deps LoginDeps[R]) (R, error) {
	var zero R
	deps.Observers = deps.Observers.withDefaults()
	if deps.Authenticate == nil || deps.Persist == nil {
		return zero, deps.Errors.EngineNotReady
	}

	if deps.EnsureCSRF != nil {
		if err := deps.EnsureCSRF(ctx); err != nil {
			return zero, err
		}
	}

	result, err := deps.Authenticate(ctx)
	if err != nil {
		return zero, err
	}

	if deps.Regenerate != nil {
		if err := deps.Regenerate(ctx); err != nil {
			deps.MetricInc(deps.Metrics.ResultSaveFailure)
			deps.Warn("session id rotation failed", err)
			return zero, wrap(deps.Errors.SessionPersistFailed, err)
		}
	}

	if err := deps.Persist(ctx, result); err != nil {
		deps.MetricInc(deps.Metrics.ResultSaveFailure)
		deps.Warn("authentication result persist failed", err)
		if deps.Clear != nil {
			if cerr := deps.Clear(ctx); cerr != nil {
				deps.Warn("authentication result rollback failed", cerr)
			}
		}
		return zero, wrap(deps.Errors.SessionPersistFailed, err)
	}
	deps.MetricInc(deps.Metrics.ResultSaved)

	if deps.OnSuccess != nil {
		if err := deps.OnSuccess(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}
