package otel

import (
	"context"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu        sync.RWMutex
	snapshot  goSession.MetricsSnapshot
	dropped   uint64
	available bool
}

func (f *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goSession.MetricsSnapshot{
		Counters:   make(map[goSession.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goSession.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) IsAvailable(context.Context) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.available
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("smsf-test")

	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionCreated: 3,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricLookupLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped:   1,
		available: true,
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collect(t, reader)
	if got["smsf_session_created_total"] != 3 {
		t.Fatalf("created = %d, want 3", got["smsf_session_created_total"])
	}
	if got["smsf_session_lookup_latency_seconds_count"] != 8 {
		t.Fatalf("latency count = %d, want 8", got["smsf_session_lookup_latency_seconds_count"])
	}
	if got["smsf_audit_dropped_total"] != 1 || got["smsf_cache_available"] != 1 {
		t.Fatalf("unexpected values: %v", got)
	}

	src.mu.Lock()
	src.available = false
	src.mu.Unlock()
	if got := collect(t, reader); got["smsf_cache_available"] != 0 {
		t.Fatalf("cache_available = %d, want 0", got["smsf_cache_available"])
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("smsf-test")

	if _, err := NewExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewExporter(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("smsf-test")

	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionHit: 1,
			},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	}

	exp, err := NewExporter(meter, src)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goSession.MetricSessionHit] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
