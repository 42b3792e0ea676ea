// Package prometheus exposes client metrics as a Prometheus collector.
//
// [NewExporter] wraps an [eduAuth.Client]; register the returned collector
// with any registry, or mount [Exporter.Handler]. Counter names are
// eduauth_*_total and the request latency histogram is
// eduauth_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate client state.
package prometheus
