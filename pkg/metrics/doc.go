// Package metrics renders exporter snapshots in the Prometheus data model
// and holds the exporter's own instrumentation.
package metrics
