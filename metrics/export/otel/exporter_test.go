package otel

import (
	"context"
	"sync"
	"testing"

	goAuthWeb "github.com/MrEthical07/goAuthWeb"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goAuthWeb.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goAuthWeb.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goAuthWeb.MetricsSnapshot{
		Counters:   make(map[goAuthWeb.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goAuthWeb.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.DataPoint[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0]
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0]
				}
			}
		}
	}
	return out
}

func TestExporterCollectsCountersAndBuckets(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{
		snapshot: goAuthWeb.MetricsSnapshot{
			Counters: map[goAuthWeb.MetricID]uint64{
				goAuthWeb.MetricLoginSuccess: 3,
				goAuthWeb.MetricCSRFRejected: 2,
			},
			Histograms: map[goAuthWeb.MetricID][]uint64{
				goAuthWeb.MetricGrantExchangeLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("goauthweb-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, exp.Close()) })

	points := collectSums(t, reader)
	require.EqualValues(t, 3, points["goauthweb_login_success_total"].Value)
	require.EqualValues(t, 2, points["goauthweb_csrf_rejected_total"].Value)
	require.EqualValues(t, 0, points["goauthweb_logout_total"].Value)
	require.EqualValues(t, 1, points["goauthweb_audit_dropped_total"].Value)
	require.EqualValues(t, 1, points["goauthweb_grant_exchange_latency_seconds_bucket_le_0_025"].Value)
	require.EqualValues(t, 8, points["goauthweb_grant_exchange_latency_seconds_bucket_le_inf"].Value)
	require.EqualValues(t, 8, points["goauthweb_grant_exchange_latency_seconds_count"].Value)
}

func TestExporterAttachesAttributes(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{snapshot: goAuthWeb.MetricsSnapshot{
		Counters: map[goAuthWeb.MetricID]uint64{goAuthWeb.MetricLogout: 4},
	}}

	exp, err := NewOTelExporterFromSource(provider.Meter("goauthweb-test"), src,
		WithAttributes(attribute.String("application", "https://id.example.com/v1/applications/app")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Close() })

	point := collectSums(t, reader)["goauthweb_logout_total"]
	require.EqualValues(t, 4, point.Value)
	v, ok := point.Attributes.Value("application")
	require.True(t, ok)
	require.Equal(t, "https://id.example.com/v1/applications/app", v.AsString())
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReaderMeter()

	_, err := NewOTelExporterFromSource(provider.Meter("goauthweb-test"), nil)
	require.ErrorIs(t, err, ErrNilSource)

	_, err = NewOTelExporterFromSource(nil, &fakeSource{})
	require.ErrorIs(t, err, ErrNilMeter)

	_, err = NewOTelExporter(provider.Meter("goauthweb-test"), nil)
	require.ErrorIs(t, err, ErrNilSource)

	var nilExp *OTelExporter
	require.NoError(t, nilExp.Close())
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{
		snapshot: goAuthWeb.MetricsSnapshot{
			Counters: map[goAuthWeb.MetricID]uint64{goAuthWeb.MetricLoginSuccess: 1},
			Histograms: map[goAuthWeb.MetricID][]uint64{
				goAuthWeb.MetricGrantExchangeLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("goauthweb-test"), src)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goAuthWeb.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
