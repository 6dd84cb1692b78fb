// Package prometheus renders bruteguard metrics in Prometheus text exposition format.
//
// [NewExporter] accepts a [bruteguard.Engine] and exposes an [http.Handler]. Counter
// names are bruteguard_*_total; the single histogram is
// bruteguard_validate_latency_seconds and is emitted only when latency histograms are on.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
