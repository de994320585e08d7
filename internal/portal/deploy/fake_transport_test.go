package deploy

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/deployportal-dev/deployportal/internal/portal/remote"
	"github.com/deployportal-dev/deployportal/pkg/models"
)

// fakeSession serves canned outcomes keyed by command substring and records
// every command. Unmatched commands succeed with empty output.
type fakeSession struct {
	mu       sync.Mutex
	scripts  []fakeScript
	calls    []string
	uploads  map[string]string // command -> stdin content
	closed   int
	dialFail error
}

type fakeScript struct {
	match   string
	outcome remote.CommandOutcome
	err     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{uploads: make(map[string]string)}
}

func (f *fakeSession) on(match string, outcome remote.CommandOutcome) *fakeSession {
	f.scripts = append(f.scripts, fakeScript{match: match, outcome: outcome})
	return f
}

func (f *fakeSession) Run(ctx context.Context, command string) (*remote.CommandOutcome, error) {
	return f.RunWithInput(ctx, command, nil)
}

func (f *fakeSession) RunWithInput(_ context.Context, command string, input io.Reader) (*remote.CommandOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, command)
	if input != nil {
		content, _ := io.ReadAll(input)
		f.uploads[command] = string(content)
	}
	for _, s := range f.scripts {
		if strings.Contains(command, s.match) {
			if s.err != nil {
				return nil, s.err
			}
			outcome := s.outcome
			return &outcome, nil
		}
	}
	return &remote.CommandOutcome{}, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSession) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeSession) uploadFor(substr string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for cmd, stdin := range f.uploads {
		if strings.Contains(cmd, substr) {
			return stdin
		}
	}
	return ""
}

func (f *fakeSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// dialerFor returns a DialFunc handing out this session, or failing with
// dialFail when set.
func (f *fakeSession) dialerFor() remote.DialFunc {
	return func(_ context.Context, _ *models.Target, _ time.Duration) (remote.Session, error) {
		if f.dialFail != nil {
			return nil, f.dialFail
		}
		return f, nil
	}
}

// workingHost scripts the probes for a healthy target: passwordless sudo,
// docker installed and running, unprivileged engine access denied.
func workingHost() *fakeSession {
	return newFakeSession().
		on("command -v sudo", remote.CommandOutcome{ExitCode: 0, Stdout: "/usr/bin/sudo"}).
		on("sudo -n true", remote.CommandOutcome{ExitCode: 0}).
		on("command -v docker", remote.CommandOutcome{ExitCode: 0, Stdout: "/usr/bin/docker"}).
		on("sudo docker info", remote.CommandOutcome{ExitCode: 0}).
		on("docker info", remote.CommandOutcome{ExitCode: 1, Stderr: "permission denied"})
}

// collectSink is a remote.LogSink recording entries in order.
type collectSink struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (c *collectSink) Append(level models.LogLevel, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, models.LogEntry{Level: level, Message: message})
}

func (c *collectSink) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Message)
	}
	return out
}
