// Package remote implements the SSH execution layer: session management,
// privilege-elevation detection, engine bootstrap, and logged command
// execution against a deployment target.
package remote

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/deployportal-dev/deployportal/pkg/models"
)

// Common session errors
var (
	// ErrCredentialNotFound is returned when the target's private key path
	// does not exist after expansion.
	ErrCredentialNotFound = errors.New("ssh key not found")

	// ErrUnsupportedCredential is returned when the private key cannot be
	// parsed in any supported format.
	ErrUnsupportedCredential = errors.New("unsupported ssh key type")

	// ErrConnection is returned for transport-level connection failures.
	ErrConnection = errors.New("connection failed")
)

// CommandOutcome captures the result of one remote command: exit status plus
// trimmed stdout and stderr. It is consumed immediately by the calling step
// to decide control flow.
type CommandOutcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Session executes shell commands on one remote host. Commands run strictly
// sequentially over one underlying connection; a Session is not safe for
// concurrent command execution and serializes callers internally.
type Session interface {
	// Run executes a command and returns its outcome. A nonzero exit status
	// is reported through the outcome, not as an error; errors are reserved
	// for transport failures.
	Run(ctx context.Context, command string) (*CommandOutcome, error)

	// RunWithInput executes a command with the given reader attached to its
	// standard input.
	RunWithInput(ctx context.Context, command string, input io.Reader) (*CommandOutcome, error)

	// Close releases the underlying connection. Safe to call once per open.
	Close() error
}

// DialFunc opens a session against a target. The deployment executor depends
// on this narrow function type so tests can substitute a fake transport.
type DialFunc func(ctx context.Context, target *models.Target, timeout time.Duration) (Session, error)

type sshSession struct {
	client *ssh.Client
	mu     sync.Mutex
}

// Dial opens an authenticated SSH session against the target. The credential
// path is expanded and resolved once per call, never cached across sessions.
// Unknown host identities are accepted automatically; this transport is not a
// security boundary against host impersonation.
func Dial(ctx context.Context, target *models.Target, timeout time.Duration) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signer, err := loadSigner(target.SSHKeyPath)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            target.SSHUser,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // deliberate: targets are operator-registered hosts
		Timeout:         timeout,
	}

	addr := target.Address
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}

	return &sshSession{client: client}, nil
}

func (s *sshSession) Run(ctx context.Context, command string) (*CommandOutcome, error) {
	return s.RunWithInput(ctx, command, nil)
}

func (s *sshSession) RunWithInput(ctx context.Context, command string, input io.Reader) (*CommandOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %v", ErrConnection, err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if input != nil {
		sess.Stdin = input
	}

	outcome := &CommandOutcome{}
	if err := sess.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: run command: %v", ErrConnection, err)
		}
		outcome.ExitCode = exitErr.ExitStatus()
	}

	outcome.Stdout = strings.TrimSpace(stdout.String())
	outcome.Stderr = strings.TrimSpace(stderr.String())
	return outcome, nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// loadSigner resolves the key path and parses the private key, trying the
// OpenSSH/PEM format first and raw PKCS#8 second.
func loadSigner(keyPath string) (ssh.Signer, error) {
	resolved, err := expandPath(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentialNotFound, keyPath, err)
	}
	if _, err := os.Stat(resolved); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, resolved)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentialNotFound, resolved, err)
	}

	signer, err := ssh.ParsePrivateKey(raw)
	if err == nil {
		return signer, nil
	}

	block, _ := pem.Decode(raw)
	if block != nil {
		if key, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes); pkcs8Err == nil {
			if signer, signerErr := ssh.NewSignerFromKey(key); signerErr == nil {
				return signer, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedCredential, resolved, err)
}

// expandPath resolves home-directory shorthand and relative paths to an
// absolute path.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return filepath.Abs(path)
}
