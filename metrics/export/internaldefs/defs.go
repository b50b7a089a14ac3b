package internaldefs

import (
	goAuthWeb "github.com/MrEthical07/goAuthWeb"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goAuthWeb.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goAuthWeb.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthWeb.MetricLoginSuccess, Name: "goauthweb_login_success_total", Help: "Successful login attempts."},
	{ID: goAuthWeb.MetricLoginFailure, Name: "goauthweb_login_failure_total", Help: "Failed login attempts."},
	{ID: goAuthWeb.MetricLoginRateLimited, Name: "goauthweb_login_rate_limited_total", Help: "Login attempts rejected by the throttle."},
	{ID: goAuthWeb.MetricInvalidCredentials, Name: "goauthweb_invalid_credentials_total", Help: "Login attempts rejected for bad or empty credentials."},
	{ID: goAuthWeb.MetricGrantExchangeFailure, Name: "goauthweb_grant_exchange_failure_total", Help: "Password-grant exchanges that failed for operational reasons."},
	{ID: goAuthWeb.MetricConfigurationError, Name: "goauthweb_configuration_error_total", Help: "Logins that could not run due to missing configuration."},
	{ID: goAuthWeb.MetricCSRFTokenIssued, Name: "goauthweb_csrf_token_issued_total", Help: "CSRF tokens created for sessions."},
	{ID: goAuthWeb.MetricCSRFRejected, Name: "goauthweb_csrf_rejected_total", Help: "Requests rejected by CSRF validation."},
	{ID: goAuthWeb.MetricResultSaved, Name: "goauthweb_result_saved_total", Help: "Authentication results persisted."},
	{ID: goAuthWeb.MetricResultSaveFailure, Name: "goauthweb_result_save_failure_total", Help: "Authentication results that failed to persist."},
	{ID: goAuthWeb.MetricResultCleared, Name: "goauthweb_result_cleared_total", Help: "Authentication results cleared on logout."},
	{ID: goAuthWeb.MetricSessionInvalidated, Name: "goauthweb_session_invalidated_total", Help: "Sessions invalidated on logout."},
	{ID: goAuthWeb.MetricLogout, Name: "goauthweb_logout_total", Help: "Completed logouts."},
	{ID: goAuthWeb.MetricAccessChallenged, Name: "goauthweb_access_challenged_total", Help: "Protected requests without an authenticated principal."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthWeb.MetricGrantExchangeLatency, Name: "goauthweb_grant_exchange_latency_seconds", Help: "Password-grant exchange latency histogram."},
}

// HistogramBounds are the upper bounds in seconds, matching the engine's buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
