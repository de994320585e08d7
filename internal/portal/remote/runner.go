package remote

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// LogSink receives structured log entries for one deployment run. The run
// store's append method satisfies this once bound to a run ID.
type LogSink interface {
	Append(level models.LogLevel, message string)
}

// NopSink discards entries. Used when no run is associated with a command.
type NopSink struct{}

func (NopSink) Append(models.LogLevel, string) {}

// Runner executes remote commands and routes a structured log entry for each
// one to both the process log and the run's log sink. It is the single choke
// point through which all remote commands pass.
type Runner struct {
	sink LogSink
}

// NewRunner creates a runner that mirrors entries to the given sink.
func NewRunner(sink LogSink) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	return &Runner{sink: sink}
}

// Log emits an entry outside of command execution (progress messages such as
// connection status).
func (r *Runner) Log(level models.LogLevel, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", level, message)
	r.sink.Append(level, message)
}

// RunLogged executes one command, capturing exit status, stdout and stderr,
// and logs the outcome. A nonzero exit status is logged as a warning and
// returned in the outcome; only transport failures surface as errors.
func (r *Runner) RunLogged(ctx context.Context, sess Session, command, description string) (*CommandOutcome, error) {
	return r.RunLoggedWithInput(ctx, sess, command, description, nil)
}

// RunLoggedWithInput is RunLogged with a reader attached to the command's
// standard input (used for uploading file content over the session).
func (r *Runner) RunLoggedWithInput(ctx context.Context, sess Session, command, description string, input io.Reader) (*CommandOutcome, error) {
	r.Log(models.LogInfo, "Executing: %s", description)

	outcome, err := sess.RunWithInput(ctx, command, input)
	if err != nil {
		r.Log(models.LogError, "%s - Error: %v", description, err)
		return nil, err
	}

	if outcome.ExitCode == 0 {
		r.Log(models.LogInfo, "%s - Success", description)
		if outcome.Stdout != "" {
			r.Log(models.LogDebug, "Output: %s", outcome.Stdout)
		}
	} else {
		r.Log(models.LogWarning, "%s - Failed (exit code: %d)", description, outcome.ExitCode)
		if outcome.Stderr != "" {
			r.Log(models.LogError, "Error output: %s", outcome.Stderr)
		}
	}

	return outcome, nil
}
