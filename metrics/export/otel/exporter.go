package otel

import (
	"context"
	"errors"
	"fmt"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/MrEthical07/goAuthWeb/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goAuthWeb.MetricsSnapshot
	AuditDropped() uint64
}

// Option configures an [OTelExporter].
type Option func(*options)

type options struct {
	attrs []attribute.KeyValue
}

// WithAttributes attaches constant attributes (for example the application
// href or deployment name) to every observation.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

type counterBinding struct {
	id         goAuthWeb.MetricID
	instrument metric.Int64ObservableCounter
}

type histogramBinding struct {
	id      goAuthWeb.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine counters as asynchronous OpenTelemetry
// instruments. Values are read from the source on each collection.
type OTelExporter struct {
	source       metricsSource
	observeOpts  []metric.ObserveOption
	registration metric.Registration
	counters     []counterBinding
	histograms   []histogramBinding
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter backed by engine.
func NewOTelExporter(meter metric.Meter, engine *goAuthWeb.Engine, opts ...Option) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine, opts...)
}

// NewOTelExporterFromSource registers instruments backed by any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	e := &OTelExporter{source: source}
	if len(o.attrs) > 0 {
		e.observeOpts = []metric.ObserveOption{metric.WithAttributes(o.attrs...)}
	}

	observables, err := e.register(meter)
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) register(meter metric.Meter) ([]metric.Observable, error) {
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+1)

	e.counters = make([]counterBinding, 0, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	e.histograms = make([]histogramBinding, 0, len(internaldefs.HistogramDefs))
	for _, def := range internaldefs.HistogramDefs {
		binding := histogramBinding{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket count: "+def.Help))
			if err != nil {
				return nil, fmt.Errorf("create bucket gauge %s: %w", name, err)
			}
			binding.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		count, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Sample count: "+def.Help))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", countName, err)
		}
		binding.count = count
		observables = append(observables, count)
		e.histograms = append(e.histograms, binding)
	}

	dropped, err := meter.Int64ObservableCounter(
		"goauthweb_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	return observables, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]), e.observeOpts...)
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]), e.observeOpts...)
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), e.observeOpts...)
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), e.observeOpts...)
	return nil
}

// Close unregisters the collection callback. It is safe on a nil exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
