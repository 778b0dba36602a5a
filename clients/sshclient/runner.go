package sshclient

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/nomis52/baremetal/ipmi"
)

// remoteCommander is the subset of SSHClient the runner needs.
type remoteCommander interface {
	RunContext(ctx context.Context, command string) (string, string, error)
}

// Runner runs ipmitool on a jump host that can reach the BMC network.
// It satisfies ipmi.CommandRunner.
type Runner struct {
	client remoteCommander
}

var _ ipmi.CommandRunner = (*Runner)(nil)

// NewRunner returns a Runner that executes commands over client.
func NewRunner(client *SSHClient) *Runner {
	return &Runner{client: client}
}

// Run quotes name and args for a POSIX shell and runs them remotely. A
// non-zero remote exit status is reported in Output.ExitCode, not as an error.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (ipmi.Output, error) {
	stdout, stderr, err := r.client.RunContext(ctx, CommandLine(name, args...))
	out := ipmi.Output{Stdout: stdout, Stderr: stderr}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitStatus()
			return out, nil
		}
		return out, err
	}
	return out, nil
}

// CommandLine joins name and args into a single shell command with every
// word single-quoted where needed.
func CommandLine(name string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, Quote(name))
	for _, a := range args {
		words = append(words, Quote(a))
	}
	return strings.Join(words, " ")
}

// Quote returns s in a form a POSIX shell reads back as the single word s.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@,+%", r)
}
