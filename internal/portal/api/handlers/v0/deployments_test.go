package v0_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v0 "github.com/deployportal-dev/deployportal/internal/portal/api/handlers/v0"
	"github.com/deployportal-dev/deployportal/internal/portal/deploy"
	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/internal/portal/store"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// nopSession satisfies the transport interface without touching a host.
type nopSession struct{}

func (nopSession) Run(context.Context, string) (*remote.CommandOutcome, error) {
	return &remote.CommandOutcome{}, nil
}

func (nopSession) RunWithInput(context.Context, string, io.Reader) (*remote.CommandOutcome, error) {
	return &remote.CommandOutcome{}, nil
}

func (nopSession) Close() error { return nil }

// stubExecutor resolves every run with a fixed outcome.
type stubExecutor struct {
	message string
	err     error
}

func (e *stubExecutor) Connect(_ context.Context, _ *models.Target, _ remote.LogSink) (remote.Session, error) {
	return nopSession{}, nil
}

func (e *stubExecutor) Deploy(_ context.Context, sess remote.Session, _ *models.DeploymentRun, sink remote.LogSink) (string, error) {
	defer sess.Close()
	if e.err != nil {
		return "", e.err
	}
	sink.Append(models.LogInfo, e.message)
	return e.message, nil
}

type deploymentsFixture struct {
	mux     http.Handler
	targets *store.TargetStore
	runs    *store.RunStore
	service *deploy.Service
}

func newDeploymentsAPI(t *testing.T, exec *stubExecutor) *deploymentsFixture {
	t.Helper()
	targets := store.NewTargetStore()
	runs := store.NewRunStore()
	service := deploy.NewService(targets, runs, exec, nil)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v0.RegisterDeploymentsEndpoints(api, "/v0", service)

	return &deploymentsFixture{mux: mux, targets: targets, runs: runs, service: service}
}

func (f *deploymentsFixture) addTarget() *models.Target {
	return f.targets.Create(models.TargetCreate{
		Name:       "staging-vm",
		Address:    "10.0.0.12",
		SSHUser:    "ubuntu",
		SSHKeyPath: "~/.ssh/id_ed25519",
	})
}

func (f *deploymentsFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func (f *deploymentsFixture) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func waitForTerminalRun(t *testing.T, runs *store.RunStore, id int64) *models.DeploymentRun {
	t.Helper()
	var run *models.DeploymentRun
	require.Eventually(t, func() bool {
		var err error
		run, err = runs.Get(id)
		return err == nil && run.State.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	return run
}

func TestApplyDeploymentEndpoint(t *testing.T) {
	t.Run("container deployment is accepted and runs to success", func(t *testing.T) {
		f := newDeploymentsAPI(t, &stubExecutor{message: "Container web deployed successfully (ID: abc123def456)"})
		target := f.addTarget()

		w := f.post(t, "/v0/deployments/apply", map[string]any{
			"targetId":      target.ID,
			"image":         "nginx:latest",
			"containerName": "web",
			"ports":         "8080:80",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var run models.DeploymentRun
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, models.DeploymentQueued, run.State)
		assert.Equal(t, target.ID, run.TargetID)
		assert.Equal(t, models.PayloadContainer, run.Payload.Kind)

		final := waitForTerminalRun(t, f.runs, run.ID)
		assert.Equal(t, models.DeploymentSuccess, final.State)
	})

	t.Run("unknown target yields 404 and no run", func(t *testing.T) {
		f := newDeploymentsAPI(t, &stubExecutor{message: "ok"})

		w := f.post(t, "/v0/deployments/apply", map[string]any{
			"targetId":      int64(42),
			"image":         "nginx:latest",
			"containerName": "web",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, f.runs.List())
	})

	t.Run("mixed payload yields 400", func(t *testing.T) {
		f := newDeploymentsAPI(t, &stubExecutor{message: "ok"})
		target := f.addTarget()

		w := f.post(t, "/v0/deployments/apply", map[string]any{
			"targetId":      target.ID,
			"image":         "nginx:latest",
			"containerName": "web",
			"composePath":   "/opt/app/docker-compose.yml",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.runs.List())
	})

	t.Run("executor failure drives run to failed", func(t *testing.T) {
		f := newDeploymentsAPI(t, &stubExecutor{err: errors.New("connection refused")})
		target := f.addTarget()

		w := f.post(t, "/v0/deployments/apply", map[string]any{
			"targetId":      target.ID,
			"image":         "nginx:latest",
			"containerName": "web",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var run models.DeploymentRun
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))

		final := waitForTerminalRun(t, f.runs, run.ID)
		assert.Equal(t, models.DeploymentFailed, final.State)
		assert.Contains(t, final.Message, "connection refused")
	})
}

func TestPreviewDeploymentEndpoint(t *testing.T) {
	f := newDeploymentsAPI(t, &stubExecutor{message: "ok"})
	target := f.addTarget()

	t.Run("container preview", func(t *testing.T) {
		w := f.post(t, "/v0/deployments/preview", map[string]any{
			"targetId":      target.ID,
			"image":         "nginx:latest",
			"containerName": "web",
			"ports":         "8080:80",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body struct {
			TargetID int64  `json:"targetId"`
			Summary  string `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, target.ID, body.TargetID)
		assert.Equal(t,
			"Would deploy Docker container 'web' using image 'nginx:latest' on ports 8080:80 to VM staging-vm (10.0.0.12)",
			body.Summary)
	})

	t.Run("preview never creates a run", func(t *testing.T) {
		assert.Empty(t, f.runs.List())
	})

	t.Run("invalid image reference yields 400", func(t *testing.T) {
		w := f.post(t, "/v0/deployments/preview", map[string]any{
			"targetId":      target.ID,
			"image":         "UPPERCASE NOT ALLOWED",
			"containerName": "web",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetDeploymentEndpoint(t *testing.T) {
	f := newDeploymentsAPI(t, &stubExecutor{message: "done"})
	target := f.addTarget()

	w := f.post(t, "/v0/deployments/apply", map[string]any{
		"targetId":      target.ID,
		"image":         "nginx:latest",
		"containerName": "web",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var run models.DeploymentRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	waitForTerminalRun(t, f.runs, run.ID)

	t.Run("existing run", func(t *testing.T) {
		resp := f.get(fmt.Sprintf("/v0/deployments/%d", run.ID))
		require.Equal(t, http.StatusOK, resp.Code)

		var got models.DeploymentRun
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, models.DeploymentSuccess, got.State)
	})

	t.Run("unknown run", func(t *testing.T) {
		resp := f.get("/v0/deployments/999")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("list includes the run", func(t *testing.T) {
		resp := f.get("/v0/deployments")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Deployments []models.DeploymentRun `json:"deployments"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body.Deployments, 1)
		assert.Equal(t, run.ID, body.Deployments[0].ID)
	})
}

func TestGetDeploymentLogsEndpoint(t *testing.T) {
	f := newDeploymentsAPI(t, &stubExecutor{message: "Container web deployed successfully (ID: abc123def456)"})
	target := f.addTarget()

	w := f.post(t, "/v0/deployments/apply", map[string]any{
		"targetId":      target.ID,
		"image":         "nginx:latest",
		"containerName": "web",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var run models.DeploymentRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	waitForTerminalRun(t, f.runs, run.ID)

	t.Run("logs for a finished run", func(t *testing.T) {
		resp := f.get(fmt.Sprintf("/v0/deployments/%d/logs", run.ID))
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Logs []models.LogEntry `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.NotEmpty(t, body.Logs)
		assert.Equal(t, models.LogInfo, body.Logs[len(body.Logs)-1].Level)
	})

	t.Run("logs for an unknown run", func(t *testing.T) {
		resp := f.get("/v0/deployments/999/logs")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
