package flows

import (
	"context"
	"time"
)

// Metrics carries the metric IDs flows increment.
type Metrics struct {
	LoginSuccess         int
	LoginFailure         int
	LoginRateLimited     int
	InvalidCredentials   int
	GrantExchangeFailure int
	ConfigurationError   int
	ResultSaved          int
	ResultSaveFailure    int
	ResultCleared        int
	SessionInvalidated   int
	Logout               int
	GrantLatency         int
}

// Events carries the audit event names flows emit.
type Events struct {
	LoginSuccess        string
	LoginFailure        string
	LoginRateLimited    string
	GrantExchangeFailed string
	Logout              string
}

// Errors carries host-level sentinel errors flows return or match.
type Errors struct {
	EngineNotReady            error
	InvalidCredentials        error
	LoginRateLimited          error
	Configuration             error
	SessionPersistFailed      error
	SessionInvalidationFailed error
}

// Observers are the optional ambient hooks shared by every flow.
type Observers struct {
	Now       func() time.Time
	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, login string, err error, metadata func() map[string]string)
	Warn      func(msg string, err error)
}

func (o Observers) withDefaults() Observers {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MetricInc == nil {
		o.MetricInc = func(int) {}
	}
	if o.Observe == nil {
		o.Observe = func(int, time.Duration) {}
	}
	if o.EmitAudit == nil {
		o.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if o.Warn == nil {
		o.Warn = func(string, error) {}
	}
	return o
}
