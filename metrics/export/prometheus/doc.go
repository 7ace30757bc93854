// Package prometheus exposes session metrics through client_golang.
//
// [NewCollector] turns a Manager snapshot into const metrics on every
// scrape: counters named smsf_*_total, the smsf_session_lookup_latency_seconds
// histogram, the audit drop counter, and the smsf_cache_available gauge.
// [Handler] mounts it on a private registry; nothing is registered globally.
package prometheus
