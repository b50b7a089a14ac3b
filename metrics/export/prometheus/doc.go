// Package prometheus renders goAuthWeb engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [goAuthWeb.Engine] and exposes an [http.Handler].
// Counter names are prefixed goauthweb_*_total; the single histogram is
// goauthweb_grant_exchange_latency_seconds.
//
// The exporter never registers in a global registry. Callers mount the Handler.
package prometheus
