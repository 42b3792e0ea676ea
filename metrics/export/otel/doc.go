// Package otel publishes client metrics through an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per client counter and
// one Int64ObservableGauge per cumulative latency bucket. A single callback
// reads [eduAuth.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
