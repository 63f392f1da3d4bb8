// Package observe provides tracing, metrics, and structured logging for the
// console client.
//
// Every HTTP call made by the transport layer and every fetch run by the
// query cache is described by an Operation. The Middleware wraps a request
// with a span, request metrics, and one log line; the query cache records
// fetch durations and cache events through Metrics directly.
//
// Telemetry is built on OpenTelemetry. NewObserver wires tracer and meter
// providers to an exporter chosen by name (stdout, otlp, prometheus, none);
// disabled subsystems fall back to no-op implementations so callers never
// need nil checks.
package observe
