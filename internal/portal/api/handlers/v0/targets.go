package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// TargetResponse represents a single target
type TargetResponse struct {
	Body models.Target
}

// TargetsListResponse represents a list of targets
type TargetsListResponse struct {
	Body struct {
		Targets []models.Target `json:"targets" doc:"Registered deployment targets"`
	}
}

// TargetInput represents path parameters for target operations
type TargetInput struct {
	ID int64 `path:"id" json:"id" doc:"Target identifier" example:"1"`
}

// RegisterTargetsEndpoints registers all target-related endpoints
func RegisterTargetsEndpoints(api huma.API, basePath string, targets *store.TargetStore) {
	// List all targets
	huma.Register(api, huma.Operation{
		OperationID: "list-targets",
		Method:      http.MethodGet,
		Path:        basePath + "/targets",
		Summary:     "List targets",
		Description: "Retrieve all registered deployment targets",
		Tags:        []string{"targets"},
	}, func(ctx context.Context, input *struct{}) (*TargetsListResponse, error) {
		resp := &TargetsListResponse{}
		resp.Body.Targets = make([]models.Target, 0)
		for _, target := range targets.List() {
			resp.Body.Targets = append(resp.Body.Targets, *target)
		}
		return resp, nil
	})

	// Get a single target
	huma.Register(api, huma.Operation{
		OperationID: "get-target",
		Method:      http.MethodGet,
		Path:        basePath + "/targets/{id}",
		Summary:     "Get target details",
		Description: "Retrieve a single registered target by its identifier",
		Tags:        []string{"targets"},
	}, func(ctx context.Context, input *TargetInput) (*TargetResponse, error) {
		target, err := targets.Get(input.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("Target not found")
			}
			return nil, huma.Error500InternalServerError("Failed to retrieve target", err)
		}
		return &TargetResponse{Body: *target}, nil
	})

	// Register a new target
	huma.Register(api, huma.Operation{
		OperationID:   "create-target",
		Method:        http.MethodPost,
		Path:          basePath + "/targets",
		Summary:       "Register a target",
		Description:   "Register a new remote host as a deployment target",
		Tags:          []string{"targets"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body models.TargetCreate
	}) (*TargetResponse, error) {
		if input.Body.Name == "" || input.Body.Address == "" || input.Body.SSHUser == "" || input.Body.SSHKeyPath == "" {
			return nil, huma.Error400BadRequest("name, address, sshUser and sshKeyPath are required")
		}
		target := targets.Create(input.Body)
		return &TargetResponse{Body: *target}, nil
	})
}
