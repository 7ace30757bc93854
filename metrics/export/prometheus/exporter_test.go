package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot  goSession.MetricsSnapshot
	dropped   uint64
	available bool
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }
func (f fakeSource) IsAvailable(context.Context) bool           { return f.available }

func TestCollectorOmitsDisabledCounters(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	// Only the audit drop counter and the availability gauge remain.
	if n := testutil.CollectAndCount(c); n != 2 {
		t.Fatalf("collected %d metrics, want 2", n)
	}
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionCreated: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricLookupLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped:   2,
		available: true,
	})

	expected := `
# HELP smsf_session_created_total Sessions written to the cache.
# TYPE smsf_session_created_total counter
smsf_session_created_total 7
# HELP smsf_session_lookup_latency_seconds Session lookup latency.
# TYPE smsf_session_lookup_latency_seconds histogram
smsf_session_lookup_latency_seconds_bucket{le="0.001"} 1
smsf_session_lookup_latency_seconds_bucket{le="0.002"} 3
smsf_session_lookup_latency_seconds_bucket{le="0.005"} 6
smsf_session_lookup_latency_seconds_bucket{le="0.01"} 10
smsf_session_lookup_latency_seconds_bucket{le="0.025"} 15
smsf_session_lookup_latency_seconds_bucket{le="0.05"} 21
smsf_session_lookup_latency_seconds_bucket{le="0.1"} 28
smsf_session_lookup_latency_seconds_bucket{le="+Inf"} 36
smsf_session_lookup_latency_seconds_sum 0
smsf_session_lookup_latency_seconds_count 36
# HELP smsf_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE smsf_audit_dropped_total counter
smsf_audit_dropped_total 2
# HELP smsf_cache_available 1 while the session cache is reachable, 0 otherwise.
# TYPE smsf_cache_available gauge
smsf_cache_available 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"smsf_session_created_total",
		"smsf_session_lookup_latency_seconds",
		"smsf_audit_dropped_total",
		"smsf_cache_available",
	); err != nil {
		t.Fatal(err)
	}
}

func TestHandlerServesSessionMetrics(t *testing.T) {
	h := Handler(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricFallbackIssued: 1},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	body := rec.Body.String()
	for _, want := range []string{"smsf_fallback_issued_total 1", "smsf_cache_available 0", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}
