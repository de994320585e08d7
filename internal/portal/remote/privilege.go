package remote

import (
	"context"
	"errors"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// ErrInsufficientPrivilege is returned when the login identity has no root
// privilege and no elevation tool is available.
var ErrInsufficientPrivilege = errors.New("insufficient privileges: sudo unavailable and user is not root")

// PrivilegeDecision is the session-scoped outcome of privilege probing. It is
// derived per session and never cached across sessions: privilege state is a
// property of the live connection, not the target's static data.
type PrivilegeDecision struct {
	// UseSudo indicates commands should be prefixed with sudo.
	UseSudo bool
	// Passwordless indicates sudo was verified to run non-interactively.
	Passwordless bool
}

// Prefix returns the command prefix implied by the decision.
func (d PrivilegeDecision) Prefix() string {
	if d.UseSudo {
		return "sudo "
	}
	return ""
}

// ResolvePrivilege determines whether commands on the session need a
// privilege-elevation prefix. If sudo exists but requires a password the
// decision still elevates; this mirrors long-standing behavior and is logged
// as a warning since the first elevated command may then fail.
func ResolvePrivilege(ctx context.Context, sess Session, runner *Runner) (PrivilegeDecision, error) {
	sudoCheck, err := runner.RunLogged(ctx, sess, "command -v sudo", "Check for sudo")
	if err != nil {
		return PrivilegeDecision{}, err
	}

	if sudoCheck.ExitCode == 0 {
		nonInteractive, err := runner.RunLogged(ctx, sess, "sudo -n true", "Check passwordless sudo")
		if err != nil {
			return PrivilegeDecision{}, err
		}
		if nonInteractive.ExitCode == 0 {
			return PrivilegeDecision{UseSudo: true, Passwordless: true}, nil
		}
		runner.Log(models.LogWarning, "sudo requires a password; proceeding with elevation anyway")
		return PrivilegeDecision{UseSudo: true}, nil
	}

	uid, err := runner.RunLogged(ctx, sess, "id -u", "Check current user id")
	if err != nil {
		return PrivilegeDecision{}, err
	}
	if uid.ExitCode == 0 && uid.Stdout == "0" {
		return PrivilegeDecision{}, nil
	}

	return PrivilegeDecision{}, ErrInsufficientPrivilege
}

// EngineCommandPrefix determines the effective prefix for container engine
// commands. Some installs grant non-root engine access, in which case engine
// commands need no elevation even when the general decision elevates.
func EngineCommandPrefix(ctx context.Context, sess Session, runner *Runner, decision PrivilegeDecision) (string, error) {
	probe, err := runner.RunLogged(ctx, sess, "docker info >/dev/null 2>&1", "Check unprivileged engine access")
	if err != nil {
		return "", err
	}
	if probe.ExitCode == 0 {
		return "", nil
	}
	return decision.Prefix(), nil
}
