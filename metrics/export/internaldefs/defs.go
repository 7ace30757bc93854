package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "smsf_session_created_total", Help: "Sessions written to the cache."},
	{ID: goSession.MetricSessionCreateFailed, Name: "smsf_session_create_failed_total", Help: "Session creations that failed against the cache."},
	{ID: goSession.MetricSessionHit, Name: "smsf_session_hit_total", Help: "Lookups that returned a live session."},
	{ID: goSession.MetricSessionMiss, Name: "smsf_session_miss_total", Help: "Lookups for unknown tokens."},
	{ID: goSession.MetricSessionExpired, Name: "smsf_session_expired_total", Help: "Sessions found expired at read time and removed."},
	{ID: goSession.MetricSessionCorrupt, Name: "smsf_session_corrupt_total", Help: "Undecodable session records removed."},
	{ID: goSession.MetricSessionRenewed, Name: "smsf_session_renewed_total", Help: "Renewals that extended expiry."},
	{ID: goSession.MetricSessionTouched, Name: "smsf_session_touched_total", Help: "Renewals that only refreshed last activity."},
	{ID: goSession.MetricSessionDeleted, Name: "smsf_session_deleted_total", Help: "Single-session logouts."},
	{ID: goSession.MetricSessionForceDeleted, Name: "smsf_session_force_deleted_total", Help: "Sessions removed by force logout."},
	{ID: goSession.MetricCleanupRemoved, Name: "smsf_session_cleanup_removed_total", Help: "Records removed by the expiry sweep."},
	{ID: goSession.MetricCacheUnavailable, Name: "smsf_cache_unavailable_total", Help: "Operations that hit an unreachable cache."},
	{ID: goSession.MetricLoginSuccess, Name: "smsf_login_success_total", Help: "Successful credential checks."},
	{ID: goSession.MetricLoginFailure, Name: "smsf_login_failure_total", Help: "Rejected credential checks."},
	{ID: goSession.MetricLoginRateLimited, Name: "smsf_login_rate_limited_total", Help: "Logins refused by the attempt limiter."},
	{ID: goSession.MetricFallbackIssued, Name: "smsf_fallback_issued_total", Help: "Logins served by the fallback session mechanism."},
	{ID: goSession.MetricFallbackResolved, Name: "smsf_fallback_resolved_total", Help: "Requests authenticated by a fallback token."},
	{ID: goSession.MetricVerificationSent, Name: "smsf_verification_sent_total", Help: "Verification codes issued."},
	{ID: goSession.MetricVerificationSuccess, Name: "smsf_verification_success_total", Help: "Verification codes accepted."},
	{ID: goSession.MetricVerificationFailure, Name: "smsf_verification_failure_total", Help: "Verification codes rejected."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLookupLatency, Name: "smsf_session_lookup_latency_seconds", Help: "Session lookup latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "smsf_audit_dropped_total"

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters without
// native histograms.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// CacheAvailableName is the 0/1 gauge of session cache reachability.
const CacheAvailableName = "smsf_cache_available"
