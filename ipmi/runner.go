package ipmi

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Output is what a finished ipmitool process left behind.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner executes external commands and returns their output.
// A non-zero exit status is reported through Output.ExitCode; an error
// means the command could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// ExecRunner is the default implementation using os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// RunnerFunc adapts a function to the CommandRunner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Output, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Output, error) {
	return f(ctx, name, args...)
}
