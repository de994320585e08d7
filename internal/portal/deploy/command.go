package deploy

import (
	"fmt"
	"path"
	"strings"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// Command construction is isolated here so quoting and port-mapping rules can
// be unit-tested without a transport.

// shellQuote wraps s in single quotes, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// splitPortMappings parses a comma-separated port-mapping spec, dropping
// empty entries.
func splitPortMappings(ports string) []string {
	if strings.TrimSpace(ports) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(ports, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// buildRunCommand constructs the engine command that creates a detached
// container, with one publish clause per port mapping.
func buildRunCommand(prefix string, spec *models.ContainerSpec) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString("docker run -d --name ")
	sb.WriteString(shellQuote(spec.ContainerName))
	for _, mapping := range splitPortMappings(spec.Ports) {
		sb.WriteString(" -p ")
		sb.WriteString(shellQuote(mapping))
	}
	sb.WriteString(" ")
	sb.WriteString(shellQuote(spec.Image))
	return sb.String()
}

func buildStopCommand(prefix, containerName string) string {
	return fmt.Sprintf("%sdocker stop %s", prefix, shellQuote(containerName))
}

func buildRemoveCommand(prefix, containerName string) string {
	return fmt.Sprintf("%sdocker rm %s", prefix, shellQuote(containerName))
}

// buildComposeUpCommand brings a stack up, scoped to the definition's parent
// directory. Remote paths are POSIX paths regardless of the portal's host OS.
func buildComposeUpCommand(prefix, composePath string) string {
	dir := path.Dir(composePath)
	file := path.Base(composePath)
	return fmt.Sprintf("cd %s && %sdocker compose -f %s up -d", shellQuote(dir), prefix, shellQuote(file))
}

// buildDefinitionProbe checks that the compose definition exists on the target.
func buildDefinitionProbe(composePath string) string {
	return fmt.Sprintf("test -f %s", shellQuote(composePath))
}

// buildUploadCommand writes stdin to the definition path, creating the parent
// directory first. Runs under sh -c so the redirect happens with the caller's
// privilege prefix applied.
func buildUploadCommand(prefix, composePath string) string {
	dir := path.Dir(composePath)
	inner := fmt.Sprintf("mkdir -p %s && cat > %s", shellQuote(dir), shellQuote(composePath))
	return fmt.Sprintf("%ssh -c %s", prefix, shellQuote(inner))
}
