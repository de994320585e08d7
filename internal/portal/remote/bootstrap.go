package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// ErrBootstrap is returned when the container engine cannot be made
// functional on the target.
var ErrBootstrap = errors.New("engine bootstrap failed")

// osFamily classifies the target's OS for install dispatch.
type osFamily string

const (
	familyDebian  osFamily = "debian"
	familyRedHat  osFamily = "redhat"
	familyGeneric osFamily = "generic"
)

// Bootstrapper ensures the container engine is present and functional on a
// target, installing it when absent. All commands flow through the runner;
// intermediate install-step failures are logged and tolerated, since steps
// like repository registration commonly exit nonzero under benign conditions.
// The only authoritative success signal is the final version check.
type Bootstrapper struct {
	runner           *Runner
	installScriptURL string
}

// NewBootstrapper creates a bootstrapper. installScriptURL is the vendor
// install script used by the generic fallback procedure.
func NewBootstrapper(runner *Runner, installScriptURL string) *Bootstrapper {
	return &Bootstrapper{runner: runner, installScriptURL: installScriptURL}
}

// EnsureReady verifies the engine is installed and functional, installing it
// if needed. Returns ErrBootstrap when post-install verification fails.
func (b *Bootstrapper) EnsureReady(ctx context.Context, sess Session, decision PrivilegeDecision) error {
	sudo := decision.Prefix()

	present, err := b.runner.RunLogged(ctx, sess, "command -v docker", "Check if Docker is installed")
	if err != nil {
		return err
	}

	if present.ExitCode == 0 {
		functional, err := b.runner.RunLogged(ctx, sess, sudo+"docker info >/dev/null 2>&1", "Check if Docker daemon is running")
		if err != nil {
			return err
		}
		if functional.ExitCode == 0 {
			b.runner.Log(models.LogInfo, "Docker is already installed and running")
			return nil
		}
		b.runner.Log(models.LogWarning, "Docker is installed but the daemon is not responding; reinstalling")
	}

	family, id, err := b.detectOSFamily(ctx, sess)
	if err != nil {
		return err
	}
	b.runner.Log(models.LogInfo, "Detected OS family %q (id: %s)", family, id)

	var steps []installStep
	switch family {
	case familyDebian:
		steps = debianInstallSteps(sudo, id)
	case familyRedHat:
		steps, err = b.redhatInstallSteps(ctx, sess, sudo)
		if err != nil {
			return err
		}
	default:
		steps = b.genericInstallSteps(sudo)
	}

	for _, step := range steps {
		// Nonzero exits are logged by the runner and tolerated; only a broken
		// transport aborts the sequence.
		if _, err := b.runner.RunLogged(ctx, sess, step.command, step.description); err != nil {
			return err
		}
	}

	verify, err := b.runner.RunLogged(ctx, sess, "docker --version", "Verify Docker installation")
	if err != nil {
		return err
	}
	if verify.ExitCode != 0 {
		return fmt.Errorf("%w: docker is not invokable after install: %s", ErrBootstrap, verify.Stderr)
	}

	b.runner.Log(models.LogInfo, "Docker installed successfully: %s", verify.Stdout)
	return nil
}

type installStep struct {
	command     string
	description string
}

// detectOSFamily reads the standard OS identity marker and maps it to an
// install procedure family.
func (b *Bootstrapper) detectOSFamily(ctx context.Context, sess Session) (osFamily, string, error) {
	outcome, err := b.runner.RunLogged(ctx, sess,
		`. /etc/os-release && echo "${ID} ${ID_LIKE}"`, "Detect operating system")
	if err != nil {
		return "", "", err
	}
	if outcome.ExitCode != 0 {
		return familyGeneric, "unknown", nil
	}

	fields := strings.Fields(strings.ToLower(outcome.Stdout))
	id := "unknown"
	if len(fields) > 0 {
		id = fields[0]
	}
	for _, token := range fields {
		switch token {
		case "debian", "ubuntu", "raspbian":
			return familyDebian, id, nil
		case "rhel", "centos", "fedora", "rocky", "almalinux", "amzn":
			return familyRedHat, id, nil
		}
	}
	return familyGeneric, id, nil
}

func debianInstallSteps(sudo, id string) []installStep {
	repoOS := "debian"
	if id == "ubuntu" {
		repoOS = "ubuntu"
	}
	return []installStep{
		{sudo + "apt-get update", "Refresh package index"},
		{sudo + "apt-get install -y ca-certificates curl", "Install repository prerequisites"},
		{sudo + "install -m 0755 -d /etc/apt/keyrings", "Create keyring directory"},
		{fmt.Sprintf("%scurl -fsSL https://download.docker.com/linux/%s/gpg -o /etc/apt/keyrings/docker.asc", sudo, repoOS),
			"Provision repository signing key"},
		{fmt.Sprintf(`%ssh -c 'echo "deb [signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/%s $(. /etc/os-release && echo $VERSION_CODENAME) stable" > /etc/apt/sources.list.d/docker.list'`, sudo, repoOS),
			"Register Docker repository"},
		{sudo + "apt-get update", "Refresh package index with Docker repository"},
		{sudo + "apt-get install -y docker-ce docker-ce-cli containerd.io docker-compose-plugin", "Install Docker packages"},
		{sudo + "systemctl enable --now docker", "Start and enable Docker service"},
	}
}

// redhatInstallSteps picks between dnf and yum before building the list.
func (b *Bootstrapper) redhatInstallSteps(ctx context.Context, sess Session, sudo string) ([]installStep, error) {
	mgrProbe, err := b.runner.RunLogged(ctx, sess, "command -v dnf", "Detect package manager")
	if err != nil {
		return nil, err
	}

	if mgrProbe.ExitCode == 0 {
		return []installStep{
			{sudo + "dnf install -y dnf-plugins-core", "Install repository tooling"},
			{sudo + "dnf config-manager --add-repo https://download.docker.com/linux/centos/docker-ce.repo", "Register Docker repository"},
			{sudo + "dnf install -y docker-ce docker-ce-cli containerd.io docker-compose-plugin", "Install Docker packages"},
			{sudo + "systemctl enable --now docker", "Start and enable Docker service"},
		}, nil
	}
	return []installStep{
		{sudo + "yum install -y yum-utils", "Install repository tooling"},
		{sudo + "yum-config-manager --add-repo https://download.docker.com/linux/centos/docker-ce.repo", "Register Docker repository"},
		{sudo + "yum install -y docker-ce docker-ce-cli containerd.io docker-compose-plugin", "Install Docker packages"},
		{sudo + "systemctl enable --now docker", "Start and enable Docker service"},
	}, nil
}

func (b *Bootstrapper) genericInstallSteps(sudo string) []installStep {
	return []installStep{
		{fmt.Sprintf("curl -fsSL %s -o /tmp/get-docker.sh", b.installScriptURL), "Download engine install script"},
		{sudo + "sh /tmp/get-docker.sh", "Run engine install script"},
		{sudo + "systemctl enable --now docker", "Start and enable Docker service (systemd)"},
		{sudo + "service docker start", "Start Docker service (legacy)"},
	}
}
