// Package otel binds goAuthWeb engine metrics to OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and
// a set of cumulative bucket gauges for the grant exchange latency histogram.
// Values are read from [goAuthWeb.Engine.MetricsSnapshot] on each collection
// cycle, so the exporter holds no state of its own.
package otel
