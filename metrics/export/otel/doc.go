// Package otel exports session metrics through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per session counter,
// one Int64ObservableGauge per latency bucket, and a cache availability
// gauge. A single callback reads the Manager's snapshot on each collection.
// The caller owns the MeterProvider.
package otel
