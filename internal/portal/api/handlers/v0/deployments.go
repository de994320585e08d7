package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/deployportal-dev/deployportal/internal/portal/deploy"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// DeploymentRequest is the submission body shared by preview and apply.
type DeploymentRequest struct {
	TargetID       int64  `json:"targetId" doc:"Identifier of the target to deploy to" example:"1"`
	Image          string `json:"image,omitempty" doc:"Image reference for a single-container deployment" example:"nginx:latest"`
	ContainerName  string `json:"containerName,omitempty" doc:"Name for the deployed container" example:"web"`
	Ports          string `json:"ports,omitempty" doc:"Comma-separated port mappings" example:"8080:80"`
	ComposePath    string `json:"composePath,omitempty" doc:"Path to a compose definition on the target" example:"/opt/app/docker-compose.yml"`
	ComposeContent string `json:"composeContent,omitempty" doc:"Inline compose YAML to upload before deploying"`
}

func (r DeploymentRequest) toApplyRequest() deploy.ApplyRequest {
	return deploy.ApplyRequest{
		TargetID:       r.TargetID,
		Image:          r.Image,
		ContainerName:  r.ContainerName,
		Ports:          r.Ports,
		ComposePath:    r.ComposePath,
		ComposeContent: r.ComposeContent,
	}
}

// DeploymentResponse represents a single deployment run
type DeploymentResponse struct {
	Body models.DeploymentRun
}

// DeploymentsListResponse represents a list of deployment runs
type DeploymentsListResponse struct {
	Body struct {
		Deployments []models.DeploymentRun `json:"deployments" doc:"Deployment runs ordered by identifier"`
	}
}

// DeploymentLogsResponse represents a run's log stream
type DeploymentLogsResponse struct {
	Body struct {
		Logs []models.LogEntry `json:"logs" doc:"Append-only log entries in insertion order"`
	}
}

// PreviewResponse represents the outcome of a dry-run submission
type PreviewResponse struct {
	Body struct {
		TargetID int64  `json:"targetId"`
		Summary  string `json:"summary" doc:"Human-readable description of what an apply would do"`
	}
}

// DeploymentInput represents path parameters for run operations
type DeploymentInput struct {
	ID int64 `path:"id" json:"id" doc:"Deployment run identifier" example:"1"`
}

// RegisterDeploymentsEndpoints registers all deployment-related endpoints
func RegisterDeploymentsEndpoints(api huma.API, basePath string, service *deploy.Service) {
	// Preview a deployment without executing it
	huma.Register(api, huma.Operation{
		OperationID: "preview-deployment",
		Method:      http.MethodPost,
		Path:        basePath + "/deployments/preview",
		Summary:     "Preview a deployment",
		Description: "Validate a deployment request and describe what applying it would do, without contacting the target",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *struct {
		Body DeploymentRequest
	}) (*PreviewResponse, error) {
		result, err := service.Preview(ctx, input.Body.toApplyRequest())
		if err != nil {
			return nil, mapDeployError(err)
		}
		resp := &PreviewResponse{}
		resp.Body.TargetID = result.TargetID
		resp.Body.Summary = result.Summary
		return resp, nil
	})

	// Apply a deployment
	huma.Register(api, huma.Operation{
		OperationID:   "apply-deployment",
		Method:        http.MethodPost,
		Path:          basePath + "/deployments/apply",
		Summary:       "Apply a deployment",
		Description:   "Queue a container or compose stack deployment for asynchronous execution on a target",
		Tags:          []string{"deployments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body DeploymentRequest
	}) (*DeploymentResponse, error) {
		run, err := service.Submit(ctx, input.Body.toApplyRequest())
		if err != nil {
			return nil, mapDeployError(err)
		}
		return &DeploymentResponse{Body: *run}, nil
	})

	// List all deployment runs
	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        basePath + "/deployments",
		Summary:     "List deployments",
		Description: "Retrieve all deployment runs ordered by identifier",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *struct{}) (*DeploymentsListResponse, error) {
		resp := &DeploymentsListResponse{}
		resp.Body.Deployments = make([]models.DeploymentRun, 0)
		for _, run := range service.ListRuns() {
			resp.Body.Deployments = append(resp.Body.Deployments, *run)
		}
		return resp, nil
	})

	// Get a single deployment run
	huma.Register(api, huma.Operation{
		OperationID: "get-deployment",
		Method:      http.MethodGet,
		Path:        basePath + "/deployments/{id}",
		Summary:     "Get deployment status",
		Description: "Retrieve a single deployment run by its identifier",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *DeploymentInput) (*DeploymentResponse, error) {
		run, err := service.GetRun(input.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("Deployment not found")
			}
			return nil, huma.Error500InternalServerError("Failed to retrieve deployment", err)
		}
		return &DeploymentResponse{Body: *run}, nil
	})

	// Get a deployment run's logs
	huma.Register(api, huma.Operation{
		OperationID: "get-deployment-logs",
		Method:      http.MethodGet,
		Path:        basePath + "/deployments/{id}/logs",
		Summary:     "Get deployment logs",
		Description: "Retrieve the append-only log stream for a deployment run",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *DeploymentInput) (*DeploymentLogsResponse, error) {
		if _, err := service.GetRun(input.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("Deployment not found")
			}
			return nil, huma.Error500InternalServerError("Failed to retrieve deployment", err)
		}
		resp := &DeploymentLogsResponse{}
		resp.Body.Logs = service.RunLogs(input.ID)
		if resp.Body.Logs == nil {
			resp.Body.Logs = make([]models.LogEntry, 0)
		}
		return resp, nil
	})
}

// mapDeployError translates service errors into HTTP status errors.
func mapDeployError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound("Target not found")
	case errors.Is(err, deploy.ErrInvalidPayload):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("Failed to process deployment", err)
	}
}
