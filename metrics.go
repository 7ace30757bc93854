package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one session counter.
type MetricID uint16

const (
	// MetricSessionCreated counts sessions written to the cache.
	MetricSessionCreated MetricID = iota
	// MetricSessionCreateFailed counts create calls rejected or failed against the cache.
	MetricSessionCreateFailed
	// MetricSessionHit counts lookups that returned a live session.
	MetricSessionHit
	// MetricSessionMiss counts lookups for tokens with no record.
	MetricSessionMiss
	// MetricSessionExpired counts records found expired at read time and removed.
	MetricSessionExpired
	// MetricSessionCorrupt counts undecodable records that were removed.
	MetricSessionCorrupt
	// MetricSessionRenewed counts renew calls that moved expiry.
	MetricSessionRenewed
	// MetricSessionTouched counts renew calls that only refreshed last activity.
	MetricSessionTouched
	// MetricSessionDeleted counts single-session deletions.
	MetricSessionDeleted
	// MetricSessionForceDeleted counts sessions removed by DeleteAll.
	MetricSessionForceDeleted
	// MetricCleanupRemoved counts records removed by CleanupExpired.
	MetricCleanupRemoved
	// MetricCacheUnavailable counts operations that hit an unreachable cache.
	MetricCacheUnavailable
	// MetricLoginSuccess counts successful credential checks.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the attempt limiter.
	MetricLoginRateLimited
	// MetricFallbackIssued counts logins served by the fallback mechanism.
	MetricFallbackIssued
	// MetricFallbackResolved counts requests authenticated by a fallback token.
	MetricFallbackResolved
	// MetricVerificationSent counts verification codes issued.
	MetricVerificationSent
	// MetricVerificationSuccess counts verification codes accepted.
	MetricVerificationSuccess
	// MetricVerificationFailure counts verification codes rejected.
	MetricVerificationFailure
	// MetricLookupLatency is the session lookup latency histogram.
	MetricLookupLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters for session operations. A nil or
// disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to the counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records a latency sample. Only MetricLookupLatency keeps a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricLookupLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricLookupLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLookupLatency].buckets[i])
		}
		s.Histograms[MetricLookupLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 1:
		return 0
	case ms <= 2:
		return 1
	case ms <= 5:
		return 2
	case ms <= 10:
		return 3
	case ms <= 25:
		return 4
	case ms <= 50:
		return 5
	case ms <= 100:
		return 6
	default:
		return 7
	}
}
