package remote

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// scripted maps a command substring to a canned outcome.
type scripted struct {
	match   string
	outcome CommandOutcome
	err     error
}

// fakeSession serves scripted outcomes and records every command it sees.
// Commands with no matching script succeed with empty output.
type fakeSession struct {
	mu      sync.Mutex
	scripts []scripted
	calls   []string
	closed  int
}

func (f *fakeSession) on(match string, outcome CommandOutcome) *fakeSession {
	f.scripts = append(f.scripts, scripted{match: match, outcome: outcome})
	return f
}

func (f *fakeSession) onErr(match string, err error) *fakeSession {
	f.scripts = append(f.scripts, scripted{match: match, err: err})
	return f
}

func (f *fakeSession) Run(ctx context.Context, command string) (*CommandOutcome, error) {
	return f.RunWithInput(ctx, command, nil)
}

func (f *fakeSession) RunWithInput(_ context.Context, command string, _ io.Reader) (*CommandOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, command)
	for _, s := range f.scripts {
		if strings.Contains(command, s.match) {
			if s.err != nil {
				return nil, s.err
			}
			outcome := s.outcome
			return &outcome, nil
		}
	}
	return &CommandOutcome{}, nil
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

// recordingSink collects log entries appended by the runner.
type recordingSink struct {
	mu      sync.Mutex
	entries []sinkEntry
}

type sinkEntry struct {
	level   models.LogLevel
	message string
}

func (r *recordingSink) Append(level models.LogLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, sinkEntry{level: level, message: message})
}

func (r *recordingSink) all() []sinkEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sinkEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.message)
	}
	return out
}
