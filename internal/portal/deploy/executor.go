// Package deploy implements the deployment executor and the asynchronous
// deployment service built on top of the remote execution layer.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// Deployment-specific errors
var (
	// ErrInvalidPayload is returned when the request payload is not exactly
	// one of the two supported variants, or its fields fail validation.
	ErrInvalidPayload = errors.New("invalid deployment payload")

	// ErrCreateFailed is returned when the container create command exits
	// nonzero.
	ErrCreateFailed = errors.New("docker run failed")

	// ErrEmptyResult is returned when the create command exits zero but
	// yields no container identifier. Treated as an anomaly, not success.
	ErrEmptyResult = errors.New("docker run returned no container id")

	// ErrDefinitionNotFound is returned when the compose definition path
	// does not exist on the target.
	ErrDefinitionNotFound = errors.New("compose definition not found on target")

	// ErrComposeFailed is returned when the compose up command exits nonzero.
	ErrComposeFailed = errors.New("docker compose deployment failed")
)

// containerIDPrefixLen is the truncated identifier length reported on success.
const containerIDPrefixLen = 12

// Executor orchestrates the full deploy sequence for one run: session,
// privilege resolution, engine bootstrap, teardown and creation. One call per
// run; runs against distinct targets may execute concurrently, each over its
// own session.
type Executor struct {
	dial             remote.DialFunc
	connectTimeout   time.Duration
	installScriptURL string
}

// NewExecutor creates an executor using the given dialer. Tests substitute a
// fake dialer; production wiring passes remote.Dial.
func NewExecutor(dial remote.DialFunc, connectTimeout time.Duration, installScriptURL string) *Executor {
	return &Executor{
		dial:             dial,
		connectTimeout:   connectTimeout,
		installScriptURL: installScriptURL,
	}
}

// Connect opens the session for a run, emitting connection progress to sink.
// Connection is split from Deploy so the caller can keep a run out of the
// running state until its session is actually open: credential and dial
// failures happen before any deployment work begins.
func (e *Executor) Connect(ctx context.Context, target *models.Target, sink remote.LogSink) (remote.Session, error) {
	runner := remote.NewRunner(sink)

	runner.Log(models.LogInfo, "Connecting to %s@%s...", target.SSHUser, target.Address)
	sess, err := e.dial(ctx, target, e.connectTimeout)
	if err != nil {
		return nil, err
	}
	runner.Log(models.LogInfo, "Connected to %s", target.Address)
	return sess, nil
}

// Deploy runs the deployment described by run over an established session,
// emitting progress to sink throughout. It returns the terminal success
// message, or an error that the caller records as the run's failed state. The
// session is closed on every exit path.
func (e *Executor) Deploy(ctx context.Context, sess remote.Session, run *models.DeploymentRun, sink remote.LogSink) (string, error) {
	defer sess.Close()
	runner := remote.NewRunner(sink)

	decision, err := remote.ResolvePrivilege(ctx, sess, runner)
	if err != nil {
		return "", err
	}

	bootstrapper := remote.NewBootstrapper(runner, e.installScriptURL)
	if err := bootstrapper.EnsureReady(ctx, sess, decision); err != nil {
		return "", err
	}

	enginePrefix, err := remote.EngineCommandPrefix(ctx, sess, runner, decision)
	if err != nil {
		return "", err
	}

	switch run.Payload.Kind {
	case models.PayloadContainer:
		return e.deployContainer(ctx, sess, runner, enginePrefix, run.Payload.Container)
	case models.PayloadCompose:
		return e.deployCompose(ctx, sess, runner, enginePrefix, decision.Prefix(), run.Payload.Compose)
	default:
		return "", fmt.Errorf("%w: unknown payload kind %q", ErrInvalidPayload, run.Payload.Kind)
	}
}

func (e *Executor) deployContainer(ctx context.Context, sess remote.Session, runner *remote.Runner, prefix string, spec *models.ContainerSpec) (string, error) {
	// Idempotent teardown: stop and remove tolerate "no such container".
	if _, err := runner.RunLogged(ctx, sess, buildStopCommand(prefix, spec.ContainerName),
		fmt.Sprintf("Stop existing container %s", spec.ContainerName)); err != nil {
		return "", err
	}
	if _, err := runner.RunLogged(ctx, sess, buildRemoveCommand(prefix, spec.ContainerName),
		fmt.Sprintf("Remove existing container %s", spec.ContainerName)); err != nil {
		return "", err
	}

	outcome, err := runner.RunLogged(ctx, sess, buildRunCommand(prefix, spec),
		fmt.Sprintf("Create container %s from %s", spec.ContainerName, spec.Image))
	if err != nil {
		return "", err
	}
	if outcome.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", ErrCreateFailed, outcome.Stderr)
	}
	if outcome.Stdout == "" {
		return "", fmt.Errorf("%w: create for %s exited zero without output", ErrEmptyResult, spec.ContainerName)
	}

	id := outcome.Stdout
	if len(id) > containerIDPrefixLen {
		id = id[:containerIDPrefixLen]
	}
	message := fmt.Sprintf("Container %s deployed successfully (ID: %s)", spec.ContainerName, id)
	runner.Log(models.LogInfo, "%s", message)
	return message, nil
}

func (e *Executor) deployCompose(ctx context.Context, sess remote.Session, runner *remote.Runner, enginePrefix, sudoPrefix string, spec *models.ComposeSpec) (string, error) {
	if spec.Content != "" {
		outcome, err := runner.RunLoggedWithInput(ctx, sess, buildUploadCommand(sudoPrefix, spec.Path),
			fmt.Sprintf("Upload compose definition to %s", spec.Path), strings.NewReader(spec.Content))
		if err != nil {
			return "", err
		}
		if outcome.ExitCode != 0 {
			return "", fmt.Errorf("%w: upload to %s: %s", ErrComposeFailed, spec.Path, outcome.Stderr)
		}
	}

	probe, err := runner.RunLogged(ctx, sess, buildDefinitionProbe(spec.Path),
		fmt.Sprintf("Verify compose definition %s exists", spec.Path))
	if err != nil {
		return "", err
	}
	if probe.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", ErrDefinitionNotFound, spec.Path)
	}

	outcome, err := runner.RunLogged(ctx, sess, buildComposeUpCommand(enginePrefix, spec.Path),
		fmt.Sprintf("Deploy compose stack from %s", spec.Path))
	if err != nil {
		return "", err
	}
	if outcome.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", ErrComposeFailed, outcome.Stderr)
	}

	message := fmt.Sprintf("Compose stack deployed successfully from %s", spec.Path)
	runner.Log(models.LogInfo, "%s", message)
	return message, nil
}
