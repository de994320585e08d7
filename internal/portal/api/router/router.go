// Package router contains API routing logic
package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	v0 "github.com/deployportal-dev/deployportal/internal/portal/api/handlers/v0"
	"github.com/deployportal-dev/deployportal/internal/portal/config"
	"github.com/deployportal-dev/deployportal/internal/portal/deploy"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/internal/portal/telemetry"
)

// Middleware configuration options
type middlewareConfig struct {
	skipPaths map[string]bool
}

type MiddlewareOption func(*middlewareConfig)

// getRoutePath extracts the route pattern from the context
func getRoutePath(ctx huma.Context) string {
	if op := ctx.Operation().Path; op != "" {
		return op
	}
	// Fallback to URL path (less ideal for metrics as it includes path parameters)
	return ctx.URL().Path
}

func MetricTelemetryMiddleware(metrics *telemetry.Metrics, options ...MiddlewareOption) func(huma.Context, func(huma.Context)) {
	config := &middlewareConfig{
		skipPaths: make(map[string]bool),
	}

	for _, opt := range options {
		opt(config)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path
		if config.skipPaths[path] {
			next(ctx)
			return
		}

		start := time.Now()
		method := ctx.Method()
		routePath := getRoutePath(ctx)

		next(ctx)

		duration := time.Since(start).Seconds()
		statusCode := ctx.Status()

		attrs := []attribute.KeyValue{
			attribute.String("method", method),
			attribute.String("path", routePath),
			attribute.Int("status_code", statusCode),
		}

		metrics.Requests.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))

		if statusCode >= 400 {
			metrics.ErrorCount.Add(ctx.Context(), 1, metric.WithAttributes(attrs...))
		}

		metrics.RequestDuration.Record(ctx.Context(), duration, metric.WithAttributes(attrs...))
	}
}

// WithSkipPaths allows skipping instrumentation for specific paths
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, path := range paths {
			c.skipPaths[path] = true
		}
	}
}

// handle404 returns a helpful 404 error with suggestions for common mistakes
func handle404(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusNotFound)

	path := r.URL.Path
	detail := "Endpoint not found. See /docs for the API documentation."

	// Provide a suggestion for unversioned API paths
	if !strings.HasPrefix(path, "/v0/") {
		detail = fmt.Sprintf(
			"Endpoint not found. Did you mean '%s'? See /docs for the API documentation.",
			"/v0"+path,
		)
	}

	errorBody := map[string]any{
		"title":  "Not Found",
		"status": 404,
		"detail": detail,
	}

	jsonData, err := json.Marshal(errorBody)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	_, err = w.Write(jsonData)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// RegisterRoutes registers all API routes. This is the single entry point for
// route registration.
func RegisterRoutes(
	api huma.API,
	targets *store.TargetStore,
	service *deploy.Service,
	versionInfo *v0.VersionBody,
) {
	v0.RegisterHealthEndpoint(api)
	v0.RegisterPingEndpoint(api)
	v0.RegisterVersionEndpoint(api, versionInfo)
	v0.RegisterTargetsEndpoints(api, "/v0", targets)
	v0.RegisterDeploymentsEndpoints(api, "/v0", service)
}

// NewHumaAPI creates a new Huma API with all routes registered
func NewHumaAPI(cfg *config.Config, targets *store.TargetStore, service *deploy.Service, mux *http.ServeMux, metrics *telemetry.Metrics, versionInfo *v0.VersionBody) huma.API {
	humaConfig := huma.DefaultConfig("Deploy Portal", "1.0.0")
	humaConfig.Info.Description = "A deployment portal for pushing containers and compose stacks to SSH-reachable hosts."
	// Disable $schema property in responses: https://github.com/danielgtaylor/huma/issues/230
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	// Create a new API using humago adapter for standard library
	api := humago.New(mux, humaConfig)

	api.OpenAPI().Tags = []*huma.Tag{
		{
			Name:        "targets",
			Description: "Operations for registering and inspecting deployment targets",
		},
		{
			Name:        "deployments",
			Description: "Operations for submitting and tracking deployments",
		},
		{
			Name:        "health",
			Description: "Health check endpoint for monitoring service availability",
		},
		{
			Name:        "ping",
			Description: "Simple ping endpoint for testing connectivity",
		},
		{
			Name:        "version",
			Description: "Version information endpoint for retrieving build details",
		},
	}

	api.UseMiddleware(MetricTelemetryMiddleware(metrics,
		WithSkipPaths("/health", "/metrics", "/ping", "/docs"),
	))

	RegisterRoutes(api, targets, service, versionInfo)

	// Add /metrics for Prometheus metrics using promhttp
	mux.Handle("/metrics", metrics.PrometheusHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
			return
		}
		handle404(w, r)
	})

	return api
}
