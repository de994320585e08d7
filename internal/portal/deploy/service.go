package deploy

import (
	"context"
	"fmt"
	"log"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/internal/portal/telemetry"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// executor abstracts the deployment executor for the service. Satisfied by
// *Executor; tests substitute fakes. Connect and Deploy are separate so the
// service can mark a run running only once its session is open.
type executor interface {
	Connect(ctx context.Context, target *models.Target, sink remote.LogSink) (remote.Session, error)
	Deploy(ctx context.Context, sess remote.Session, run *models.DeploymentRun, sink remote.LogSink) (string, error)
}

// ApplyRequest is a deployment submission. Exactly one payload variant must
// be populated: image+containerName for a single container, or composePath
// (with optional inline content) for a compose stack.
type ApplyRequest struct {
	TargetID       int64
	Image          string
	ContainerName  string
	Ports          string
	ComposePath    string
	ComposeContent string
}

// PreviewResult summarizes what an apply with the same request would do.
type PreviewResult struct {
	TargetID int64
	Summary  string
}

// Service owns deployment submission: it validates requests at the boundary,
// creates runs in the queued state, and hands execution to a background
// goroutine whose results flow back through the run store's synchronized API.
type Service struct {
	targets  *store.TargetStore
	runs     *store.RunStore
	executor executor
	metrics  *telemetry.Metrics
}

// NewService creates a deployment service. metrics may be nil.
func NewService(targets *store.TargetStore, runs *store.RunStore, exec executor, metrics *telemetry.Metrics) *Service {
	return &Service{targets: targets, runs: runs, executor: exec, metrics: metrics}
}

// runSink routes executor log entries to one run's log stream.
type runSink struct {
	runs *store.RunStore
	id   int64
}

func (s *runSink) Append(level models.LogLevel, message string) {
	s.runs.AppendLog(s.id, level, message)
}

// buildPayload validates the request and produces the tagged payload variant.
// Validation happens once here, at the boundary.
func buildPayload(ctx context.Context, req ApplyRequest) (models.DeploymentPayload, error) {
	hasContainer := req.Image != "" || req.ContainerName != "" || req.Ports != ""
	hasCompose := req.ComposePath != "" || req.ComposeContent != ""

	switch {
	case hasContainer && hasCompose:
		return models.DeploymentPayload{}, fmt.Errorf("%w: container and compose fields are mutually exclusive", ErrInvalidPayload)
	case hasCompose:
		if req.ComposePath == "" {
			return models.DeploymentPayload{}, fmt.Errorf("%w: compose path is required", ErrInvalidPayload)
		}
		spec := &models.ComposeSpec{Path: req.ComposePath}
		if req.ComposeContent != "" {
			stack, err := ValidateStackDefinition(ctx, req.ComposeContent)
			if err != nil {
				return models.DeploymentPayload{}, err
			}
			spec.Content = stack.Canonical
		}
		return models.DeploymentPayload{Kind: models.PayloadCompose, Compose: spec}, nil
	case hasContainer:
		if req.Image == "" || req.ContainerName == "" {
			return models.DeploymentPayload{}, fmt.Errorf("%w: image and containerName are required", ErrInvalidPayload)
		}
		if _, err := name.ParseReference(req.Image); err != nil {
			return models.DeploymentPayload{}, fmt.Errorf("%w: invalid image reference %q: %v", ErrInvalidPayload, req.Image, err)
		}
		return models.DeploymentPayload{
			Kind: models.PayloadContainer,
			Container: &models.ContainerSpec{
				Image:         req.Image,
				ContainerName: req.ContainerName,
				Ports:         req.Ports,
			},
		}, nil
	default:
		return models.DeploymentPayload{}, fmt.Errorf("%w: either container or compose fields must be set", ErrInvalidPayload)
	}
}

func queuedMessage(payload models.DeploymentPayload, target *models.Target) string {
	if payload.Kind == models.PayloadCompose {
		return fmt.Sprintf("Docker Compose deployment queued: '%s' to %s", payload.Compose.Path, target.Address)
	}
	c := payload.Container
	portInfo := ""
	if c.Ports != "" {
		portInfo = fmt.Sprintf(" with ports %s", c.Ports)
	}
	return fmt.Sprintf("Docker deployment queued: %s (%s)%s to %s", c.ContainerName, c.Image, portInfo, target.Address)
}

// Preview validates the request and reports what an apply would do, without
// touching the target.
func (s *Service) Preview(ctx context.Context, req ApplyRequest) (*PreviewResult, error) {
	target, err := s.targets.Get(req.TargetID)
	if err != nil {
		return nil, err
	}
	payload, err := buildPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	var summary string
	if payload.Kind == models.PayloadCompose {
		summary = fmt.Sprintf("Would deploy Docker Compose stack from '%s' to VM %s (%s)",
			payload.Compose.Path, target.Name, target.Address)
	} else {
		c := payload.Container
		portInfo := ""
		if c.Ports != "" {
			portInfo = fmt.Sprintf(" on ports %s", c.Ports)
		}
		summary = fmt.Sprintf("Would deploy Docker container '%s' using image '%s'%s to VM %s (%s)",
			c.ContainerName, c.Image, portInfo, target.Name, target.Address)
	}

	return &PreviewResult{TargetID: target.ID, Summary: summary}, nil
}

// Submit validates the request, creates a run in the queued state, and
// schedules its execution on a background goroutine. A nonexistent target
// fails synchronously and never creates a run. The returned record reflects
// the initial queued state.
func (s *Service) Submit(ctx context.Context, req ApplyRequest) (*models.DeploymentRun, error) {
	target, err := s.targets.Get(req.TargetID)
	if err != nil {
		return nil, err
	}
	payload, err := buildPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	run := s.runs.Create(target.ID, payload, queuedMessage(payload, target))
	if s.metrics != nil {
		s.metrics.DeploymentsStarted.Add(context.Background(), 1)
	}

	go s.execute(run.ID, target)

	return run, nil
}

// execute drives one run to its terminal state. It deliberately uses a fresh
// background context: cancellation is not supported once a run has begun, and
// the submitting request's context ends long before the run does.
func (s *Service) execute(runID int64, target *models.Target) {
	ctx := context.Background()
	sink := &runSink{runs: s.runs, id: runID}

	run, err := s.runs.Get(runID)
	if err != nil {
		log.Printf("run %d: %v", runID, err)
		return
	}

	// Dial before marking the run running: a run whose session never opens
	// (missing or unparsable key, unreachable host) fails straight from
	// queued and is never observable as running.
	sess, err := s.executor.Connect(ctx, target, sink)
	if err != nil {
		s.fail(ctx, sink, runID, err)
		return
	}

	if err := s.runs.Transition(runID, models.DeploymentRunning, "Deployment in progress"); err != nil {
		log.Printf("run %d: cannot start: %v", runID, err)
		if cerr := sess.Close(); cerr != nil {
			log.Printf("run %d: close session: %v", runID, cerr)
		}
		return
	}

	message, err := s.executor.Deploy(ctx, sess, run, sink)
	if err != nil {
		s.fail(ctx, sink, runID, err)
		return
	}

	if terr := s.runs.Transition(runID, models.DeploymentSuccess, message); terr != nil {
		log.Printf("run %d: record success: %v", runID, terr)
	}
	if s.metrics != nil {
		s.metrics.DeploymentsSucceeded.Add(ctx, 1)
	}
}

// fail records a run's failure from either the connect or the deploy phase.
func (s *Service) fail(ctx context.Context, sink *runSink, runID int64, err error) {
	sink.Append(models.LogError, fmt.Sprintf("Deployment failed: %v", err))
	if terr := s.runs.Transition(runID, models.DeploymentFailed, err.Error()); terr != nil {
		log.Printf("run %d: record failure: %v", runID, terr)
	}
	if s.metrics != nil {
		s.metrics.DeploymentsFailed.Add(ctx, 1)
	}
}

// GetRun retrieves one run by ID.
func (s *Service) GetRun(id int64) (*models.DeploymentRun, error) {
	return s.runs.Get(id)
}

// ListRuns returns all runs ordered by identifier.
func (s *Service) ListRuns() []*models.DeploymentRun {
	return s.runs.List()
}

// RunLogs returns a run's log stream. Unknown IDs yield an empty sequence.
func (s *Service) RunLogs(id int64) []models.LogEntry {
	return s.runs.Logs(id)
}
