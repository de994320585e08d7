package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// HealthBody represents the health check response
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status of the service"`
}

// PingBody represents the ping response
type PingBody struct {
	Pong bool `json:"pong" example:"true" doc:"Always true when the service is reachable"`
}

// VersionBody represents build and version details
type VersionBody struct {
	Version string `json:"version" example:"dev" doc:"Server version"`
}

// RegisterHealthEndpoint registers the health check endpoint
func RegisterHealthEndpoint(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Check the health status of the API",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*Response[HealthBody], error) {
		return &Response[HealthBody]{Body: HealthBody{Status: "ok"}}, nil
	})
}

// RegisterPingEndpoint registers the ping endpoint
func RegisterPingEndpoint(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Ping",
		Description: "Simple ping endpoint for testing connectivity",
		Tags:        []string{"ping"},
	}, func(ctx context.Context, input *struct{}) (*Response[PingBody], error) {
		return &Response[PingBody]{Body: PingBody{Pong: true}}, nil
	})
}

// RegisterVersionEndpoint registers the version information endpoint
func RegisterVersionEndpoint(api huma.API, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/version",
		Summary:     "Version information",
		Description: "Retrieve build and version details for the running server",
		Tags:        []string{"version"},
	}, func(ctx context.Context, input *struct{}) (*Response[VersionBody], error) {
		return &Response[VersionBody]{Body: *versionInfo}, nil
	})
}
