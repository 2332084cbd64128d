// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing, logs and metrics across the kiku server and worker.
//
// The package configures OTLP HTTP export for all three signals. Without
// an endpoint it only installs W3C propagators.
package telemetry
