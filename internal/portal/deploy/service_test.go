package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// stubExecutor resolves to a fixed message or error, optionally emitting log
// entries like the real executor does. connectErr simulates a dial-phase
// failure (missing key, unreachable host).
type stubExecutor struct {
	message    string
	err        error
	connectErr error
	emit       []string
}

func (s *stubExecutor) Connect(_ context.Context, _ *models.Target, _ remote.LogSink) (remote.Session, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return newFakeSession(), nil
}

func (s *stubExecutor) Deploy(_ context.Context, sess remote.Session, _ *models.DeploymentRun, sink remote.LogSink) (string, error) {
	defer sess.Close()
	for _, msg := range s.emit {
		sink.Append(models.LogInfo, msg)
	}
	return s.message, s.err
}

func newTestService(t *testing.T, exec executor) (*Service, *store.TargetStore, *store.RunStore) {
	t.Helper()
	targets := store.NewTargetStore()
	runs := store.NewRunStore()
	return NewService(targets, runs, exec, nil), targets, runs
}

func registerTarget(targets *store.TargetStore) *models.Target {
	return targets.Create(models.TargetCreate{
		Name:       "staging-vm",
		Address:    "10.0.0.12",
		SSHUser:    "ubuntu",
		SSHKeyPath: "/tmp/key",
	})
}

func waitForTerminal(t *testing.T, runs *store.RunStore, id int64) *models.DeploymentRun {
	t.Helper()
	var run *models.DeploymentRun
	require.Eventually(t, func() bool {
		var err error
		run, err = runs.Get(id)
		return err == nil && run.State.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return run
}

func TestSubmitUnknownTargetCreatesNoRun(t *testing.T) {
	svc, _, runs := newTestService(t, &stubExecutor{})

	_, err := svc.Submit(context.Background(), ApplyRequest{TargetID: 99, Image: "nginx:latest", ContainerName: "web"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, runs.List())
}

func TestSubmitValidatesPayloadVariant(t *testing.T) {
	tests := []struct {
		name string
		req  ApplyRequest
	}{
		{name: "no payload", req: ApplyRequest{}},
		{name: "both variants", req: ApplyRequest{Image: "nginx", ContainerName: "web", ComposePath: "/opt/app/docker-compose.yml"}},
		{name: "container without image", req: ApplyRequest{ContainerName: "web"}},
		{name: "container without name", req: ApplyRequest{Image: "nginx:latest"}},
		{name: "invalid image reference", req: ApplyRequest{Image: "NGINX::bad::ref", ContainerName: "web"}},
		{name: "compose content without path", req: ApplyRequest{ComposeContent: "services: {}"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, targets, runs := newTestService(t, &stubExecutor{})
			target := registerTarget(targets)
			tc.req.TargetID = target.ID

			_, err := svc.Submit(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Empty(t, runs.List())
		})
	}
}

func TestSubmitReturnsQueuedRunSynchronously(t *testing.T) {
	// The stub blocks nothing, but the returned record must reflect the
	// queued state handed back before execution finishes.
	svc, targets, _ := newTestService(t, &stubExecutor{message: "done"})
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{
		TargetID:      target.ID,
		Image:         "nginx:latest",
		ContainerName: "web",
		Ports:         "8080:80",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DeploymentQueued, run.State)
	assert.Equal(t, "Docker deployment queued: web (nginx:latest) with ports 8080:80 to 10.0.0.12", run.Message)
	assert.Equal(t, models.PayloadContainer, run.Payload.Kind)
}

func TestSubmitRunReachesSuccess(t *testing.T) {
	svc, targets, runs := newTestService(t, &stubExecutor{
		message: "Container web deployed successfully (ID: 3f4a9b2c1d0e)",
		emit:    []string{"Connecting to ubuntu@10.0.0.12...", "Container web deployed successfully (ID: 3f4a9b2c1d0e)"},
	})
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "nginx:latest", ContainerName: "web"})
	require.NoError(t, err)

	final := waitForTerminal(t, runs, run.ID)
	assert.Equal(t, models.DeploymentSuccess, final.State)
	assert.Equal(t, "Container web deployed successfully (ID: 3f4a9b2c1d0e)", final.Message)

	entries := runs.Logs(run.ID)
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Message, "Connecting to")
	last := entries[len(entries)-1]
	assert.Equal(t, models.LogInfo, last.Level)
	assert.Contains(t, last.Message, "deployed successfully")
}

func TestSubmitRunReachesFailed(t *testing.T) {
	svc, targets, runs := newTestService(t, &stubExecutor{err: ErrCreateFailed})
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "nginx:latest", ContainerName: "web"})
	require.NoError(t, err)

	final := waitForTerminal(t, runs, run.ID)
	assert.Equal(t, models.DeploymentFailed, final.State)
	assert.Contains(t, final.Message, "docker run failed")

	entries := runs.Logs(run.ID)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, models.LogError, last.Level)
	assert.Contains(t, last.Message, "Deployment failed")
}

// stateSamplingExecutor records the run's state as observed at the moment the
// connect phase begins, then fails the dial.
type stateSamplingExecutor struct {
	runs       *store.RunStore
	runID      int64
	connectErr error

	mu            sync.Mutex
	stateAtDial   models.DeploymentState
	deployReached bool
}

func (s *stateSamplingExecutor) Connect(_ context.Context, _ *models.Target, _ remote.LogSink) (remote.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, err := s.runs.Get(s.runID); err == nil {
		s.stateAtDial = run.State
	}
	return nil, s.connectErr
}

func (s *stateSamplingExecutor) Deploy(_ context.Context, _ remote.Session, _ *models.DeploymentRun, _ remote.LogSink) (string, error) {
	s.mu.Lock()
	s.deployReached = true
	s.mu.Unlock()
	return "", errors.New("deploy must not run after a failed connect")
}

func TestCredentialFailureFailsFromQueued(t *testing.T) {
	targets := store.NewTargetStore()
	runs := store.NewRunStore()
	exec := &stateSamplingExecutor{runs: runs, runID: 1, connectErr: remote.ErrCredentialNotFound}
	svc := NewService(targets, runs, exec, nil)
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "nginx:latest", ContainerName: "web"})
	require.NoError(t, err)
	require.Equal(t, exec.runID, run.ID)

	final := waitForTerminal(t, runs, run.ID)
	assert.Equal(t, models.DeploymentFailed, final.State)
	assert.Contains(t, final.Message, "ssh key not found")

	// A run whose session never opens must fail straight from queued: it was
	// still queued when the dial began, and no deployment work ran.
	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, models.DeploymentQueued, exec.stateAtDial)
	assert.False(t, exec.deployReached)

	entries := runs.Logs(run.ID)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, models.LogError, last.Level)
	assert.Contains(t, last.Message, "Deployment failed")
}

func TestConcurrentSubmissionsTrackIndependently(t *testing.T) {
	svc, targets, runs := newTestService(t, &stubExecutor{message: "done", emit: []string{"working"}})
	target := registerTarget(targets)

	first, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "nginx:latest", ContainerName: "web"})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "redis:7", ContainerName: "cache"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	waitForTerminal(t, runs, first.ID)
	waitForTerminal(t, runs, second.ID)

	assert.Len(t, runs.Logs(first.ID), 2)
	assert.Len(t, runs.Logs(second.ID), 2)
}

func TestSubmitComposeWithInlineContentCanonicalizes(t *testing.T) {
	svc, targets, runs := newTestService(t, &stubExecutor{message: "done"})
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{
		TargetID:       target.ID,
		ComposePath:    "/opt/app/docker-compose.yml",
		ComposeContent: "services:\n    web:\n        image: nginx:latest\n",
	})
	require.NoError(t, err)
	require.Equal(t, models.PayloadCompose, run.Payload.Kind)
	assert.Contains(t, run.Payload.Compose.Content, "image: nginx:latest")

	waitForTerminal(t, runs, run.ID)
}

func TestSubmitComposeRejectsInvalidContent(t *testing.T) {
	svc, targets, _ := newTestService(t, &stubExecutor{})
	target := registerTarget(targets)

	_, err := svc.Submit(context.Background(), ApplyRequest{
		TargetID:       target.ID,
		ComposePath:    "/opt/app/docker-compose.yml",
		ComposeContent: "services:\n  web:\n    image: [not, a, string, list\n",
	})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPreview(t *testing.T) {
	svc, targets, runs := newTestService(t, &stubExecutor{})
	target := registerTarget(targets)

	t.Run("container", func(t *testing.T) {
		result, err := svc.Preview(context.Background(), ApplyRequest{
			TargetID:      target.ID,
			Image:         "nginx:latest",
			ContainerName: "web",
			Ports:         "8080:80",
		})
		require.NoError(t, err)
		assert.Equal(t, "Would deploy Docker container 'web' using image 'nginx:latest' on ports 8080:80 to VM staging-vm (10.0.0.12)", result.Summary)
	})

	t.Run("compose", func(t *testing.T) {
		result, err := svc.Preview(context.Background(), ApplyRequest{
			TargetID:    target.ID,
			ComposePath: "/opt/app/docker-compose.yml",
		})
		require.NoError(t, err)
		assert.Equal(t, "Would deploy Docker Compose stack from '/opt/app/docker-compose.yml' to VM staging-vm (10.0.0.12)", result.Summary)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.Preview(context.Background(), ApplyRequest{TargetID: 42, Image: "nginx:latest", ContainerName: "web"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	// Preview never creates runs.
	assert.Empty(t, runs.List())
}

func TestExecuteErrorDoesNotPanicService(t *testing.T) {
	boom := errors.New("unexpected transport condition")
	svc, targets, runs := newTestService(t, &stubExecutor{err: boom})
	target := registerTarget(targets)

	run, err := svc.Submit(context.Background(), ApplyRequest{TargetID: target.ID, Image: "nginx:latest", ContainerName: "web"})
	require.NoError(t, err)

	final := waitForTerminal(t, runs, run.ID)
	assert.Equal(t, models.DeploymentFailed, final.State)
	assert.Equal(t, "unexpected transport condition", final.Message)
}
