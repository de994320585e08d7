// Package telemetry wires OpenTelemetry metrics to a Prometheus exporter.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the portal's metric instruments.
type Metrics struct {
	Requests        metric.Int64Counter
	ErrorCount      metric.Int64Counter
	RequestDuration metric.Float64Histogram

	DeploymentsStarted   metric.Int64Counter
	DeploymentsSucceeded metric.Int64Counter
	DeploymentsFailed    metric.Int64Counter

	registry *prometheus.Registry
}

// PrometheusHandler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InitMetrics initializes the meter provider, runtime instrumentation, and
// the portal's instruments. The returned function shuts the provider down.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		return nil, nil, fmt.Errorf("start runtime instrumentation: %w", err)
	}

	meter := provider.Meter("deployportal", metric.WithInstrumentationVersion(version))

	m := &Metrics{registry: registry}
	if m.Requests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total HTTP requests served")); err != nil {
		return nil, nil, err
	}
	if m.ErrorCount, err = meter.Int64Counter("http_request_errors_total",
		metric.WithDescription("HTTP requests that returned a 4xx or 5xx status")); err != nil {
		return nil, nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds")); err != nil {
		return nil, nil, err
	}
	if m.DeploymentsStarted, err = meter.Int64Counter("deployments_started_total",
		metric.WithDescription("Deployment runs accepted for execution")); err != nil {
		return nil, nil, err
	}
	if m.DeploymentsSucceeded, err = meter.Int64Counter("deployments_succeeded_total",
		metric.WithDescription("Deployment runs that reached the success state")); err != nil {
		return nil, nil, err
	}
	if m.DeploymentsFailed, err = meter.Int64Counter("deployments_failed_total",
		metric.WithDescription("Deployment runs that reached the failed state")); err != nil {
		return nil, nil, err
	}

	return provider.Shutdown, m, nil
}
