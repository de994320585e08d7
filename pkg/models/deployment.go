package models

import "time"

// DeploymentState represents the lifecycle state of a deployment run.
type DeploymentState string

const (
	DeploymentQueued  DeploymentState = "queued"
	DeploymentRunning DeploymentState = "running"
	DeploymentSuccess DeploymentState = "success"
	DeploymentFailed  DeploymentState = "failed"
)

// IsTerminal returns true if the state is a terminal state.
func (s DeploymentState) IsTerminal() bool {
	return s == DeploymentSuccess || s == DeploymentFailed
}

// PayloadKind identifies which deployment payload variant a run carries.
type PayloadKind string

const (
	// PayloadContainer deploys a single container from an image reference.
	PayloadContainer PayloadKind = "container"
	// PayloadCompose deploys a stack described by a compose definition file.
	PayloadCompose PayloadKind = "compose"
)

// ContainerSpec describes a single-container deployment.
type ContainerSpec struct {
	Image         string `json:"image" doc:"Image reference" example:"nginx:latest"`
	ContainerName string `json:"containerName" doc:"Name for the container" example:"web"`
	Ports         string `json:"ports,omitempty" doc:"Comma-separated port mappings" example:"8080:80,8443:443"`
}

// ComposeSpec describes a compose stack deployment. Content, when set, is the
// compose YAML to validate and upload to Path on the target before bringing
// the stack up. When empty, Path must already exist on the target.
type ComposeSpec struct {
	Path    string `json:"path" doc:"Path to the compose definition on the target" example:"/opt/app/docker-compose.yml"`
	Content string `json:"content,omitempty" doc:"Inline compose YAML to upload to the path before deploying"`
}

// DeploymentPayload is a tagged union: exactly one of Container or Compose is
// set, fixed at creation. Kind names the active variant.
type DeploymentPayload struct {
	Kind      PayloadKind    `json:"kind"`
	Container *ContainerSpec `json:"container,omitempty"`
	Compose   *ComposeSpec   `json:"compose,omitempty"`
}

// DeploymentRun is one tracked attempt to materialize a container or compose
// stack on a target.
type DeploymentRun struct {
	ID        int64             `json:"id" doc:"Assigned run identifier"`
	TargetID  int64             `json:"targetId" doc:"Identifier of the target being deployed to"`
	Payload   DeploymentPayload `json:"payload"`
	State     DeploymentState   `json:"state" enum:"queued,running,success,failed"`
	Message   string            `json:"message" doc:"Human-readable status message"`
	CreatedAt time.Time         `json:"createdAt"`
}

// LogLevel is the severity of a run log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogWarning LogLevel = "WARNING"
	LogError   LogLevel = "ERROR"
	LogDebug   LogLevel = "DEBUG"
)

// LogEntry is one timestamped observation of orchestrator progress for a run.
// Entries are append-only and totally ordered by insertion.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level" enum:"INFO,WARNING,ERROR,DEBUG"`
	Message   string    `json:"message"`
}
