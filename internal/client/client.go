// Package client provides an HTTP client for the deploy portal API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080"

// Client is a lightweight API client for the deploy portal.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClientFromEnv constructs a client using the PORTALCTL_API_BASE_URL
// environment variable.
func NewClientFromEnv() (*Client, error) {
	base := os.Getenv("PORTALCTL_API_BASE_URL")
	c := NewClient(base)
	// Verify connectivity
	if err := c.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach API at %s: %w", c.BaseURL, err)
	}
	return c, nil
}

// NewClient constructs a client with an explicit base URL.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doJSONRequest(method, pathWithQuery string, in, out any) error {
	var body io.Reader
	if in != nil {
		inBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %T: %w", in, err)
		}
		body = bytes.NewReader(inBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+pathWithQuery, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// read up to 1KB of body for error message
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status: %s, %s", resp.Status, string(errBody))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ping checks connectivity to the API.
func (c *Client) Ping() error {
	return c.doJSONRequest(http.MethodGet, "/ping", nil, nil)
}

// CreateTarget registers a new deployment target.
func (c *Client) CreateTarget(create models.TargetCreate) (*models.Target, error) {
	var target models.Target
	if err := c.doJSONRequest(http.MethodPost, "/v0/targets", create, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// GetTarget retrieves a single target by ID.
func (c *Client) GetTarget(id int64) (*models.Target, error) {
	var target models.Target
	if err := c.doJSONRequest(http.MethodGet, fmt.Sprintf("/v0/targets/%d", id), nil, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// ListTargets retrieves all registered targets.
func (c *Client) ListTargets() ([]models.Target, error) {
	var body struct {
		Targets []models.Target `json:"targets"`
	}
	if err := c.doJSONRequest(http.MethodGet, "/v0/targets", nil, &body); err != nil {
		return nil, err
	}
	return body.Targets, nil
}

// DeploymentRequest mirrors the API submission body for preview and apply.
type DeploymentRequest struct {
	TargetID       int64  `json:"targetId"`
	Image          string `json:"image,omitempty"`
	ContainerName  string `json:"containerName,omitempty"`
	Ports          string `json:"ports,omitempty"`
	ComposePath    string `json:"composePath,omitempty"`
	ComposeContent string `json:"composeContent,omitempty"`
}

// PreviewResult is the outcome of a dry-run submission.
type PreviewResult struct {
	TargetID int64  `json:"targetId"`
	Summary  string `json:"summary"`
}

// PreviewDeployment validates a deployment request without executing it.
func (c *Client) PreviewDeployment(req DeploymentRequest) (*PreviewResult, error) {
	var result PreviewResult
	if err := c.doJSONRequest(http.MethodPost, "/v0/deployments/preview", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyDeployment queues a deployment for asynchronous execution.
func (c *Client) ApplyDeployment(req DeploymentRequest) (*models.DeploymentRun, error) {
	var run models.DeploymentRun
	if err := c.doJSONRequest(http.MethodPost, "/v0/deployments/apply", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetDeployment retrieves a single deployment run by ID.
func (c *Client) GetDeployment(id int64) (*models.DeploymentRun, error) {
	var run models.DeploymentRun
	if err := c.doJSONRequest(http.MethodGet, fmt.Sprintf("/v0/deployments/%d", id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListDeployments retrieves all deployment runs.
func (c *Client) ListDeployments() ([]models.DeploymentRun, error) {
	var body struct {
		Deployments []models.DeploymentRun `json:"deployments"`
	}
	if err := c.doJSONRequest(http.MethodGet, "/v0/deployments", nil, &body); err != nil {
		return nil, err
	}
	return body.Deployments, nil
}

// GetDeploymentLogs retrieves a run's log stream.
func (c *Client) GetDeploymentLogs(id int64) ([]models.LogEntry, error) {
	var body struct {
		Logs []models.LogEntry `json:"logs"`
	}
	if err := c.doJSONRequest(http.MethodGet, fmt.Sprintf("/v0/deployments/%d/logs", id), nil, &body); err != nil {
		return nil, err
	}
	return body.Logs, nil
}
