// Package observe records noise monitor metrics through the OpenTelemetry
// metrics API and exposes them in Prometheus text format.
//
// Tests should use NewMetrics with their own metric.MeterProvider; the
// daemon builds a provider bridged to a private Prometheus registry with
// NewPrometheusProvider.
package observe
