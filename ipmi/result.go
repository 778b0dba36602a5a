package ipmi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by New when a required connection field is missing.
	ErrInvalidConfig = errors.New("ipmi: invalid configuration")
	// ErrToolNotFound is returned by New in strict mode when ipmitool is absent.
	ErrToolNotFound = errors.New("ipmi: ipmitool not found")
	// ErrUnreachable is returned by New in strict mode when the controller does not answer.
	ErrUnreachable = errors.New("ipmi: remote host unreachable")

	// ErrRejected means the sub-command is not in the capability table. No process was run.
	ErrRejected = errors.New("ipmi: sub-command not supported")
	// ErrNoOutput means ipmitool ran but printed nothing on stdout.
	ErrNoOutput = errors.New("ipmi: no output")
	// ErrExecFailed means ipmitool could not be started.
	ErrExecFailed = errors.New("ipmi: command execution failed")
	// ErrUnexpectedOutput means ipmitool printed something other than the expected reply.
	ErrUnexpectedOutput = errors.New("ipmi: unexpected output")
)

// Status classifies the outcome of a single dispatched command.
type Status int

const (
	// StatusOK means the command ran and printed something.
	StatusOK Status = iota
	// StatusEmpty means the command ran and stdout was empty.
	StatusEmpty
	// StatusRejected means the sub-command failed validation and nothing ran.
	StatusRejected
	// StatusFailed means the process could not be spawned.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a category dispatch call.
type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int
	// ExecErr holds the spawn error for StatusFailed.
	ExecErr error
}

// Output returns stdout, which is empty for every status other than StatusOK.
func (r Result) Output() string {
	if r.Status != StatusOK {
		return ""
	}
	return r.Stdout
}

// Err converts a non-OK result into an error that matches one of
// ErrRejected, ErrNoOutput or ErrExecFailed. It returns nil for StatusOK.
func (r Result) Err() error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusEmpty:
		return ErrNoOutput
	case StatusRejected:
		return ErrRejected
	case StatusFailed:
		if r.ExecErr != nil {
			return fmt.Errorf("%w: %w", ErrExecFailed, r.ExecErr)
		}
		return ErrExecFailed
	default:
		return fmt.Errorf("ipmi: unknown status %d", r.Status)
	}
}
