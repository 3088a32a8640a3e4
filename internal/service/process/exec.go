package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a command run when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// waitDelay bounds how long output is drained after the command was killed.
const waitDelay = time.Second

// Result is the outcome of a finished command.
type Result struct {
	// Stdout is everything the command printed to standard output.
	Stdout string
	// Stderr is everything the command printed to standard error.
	Stderr string
	// ExitCode is the process exit status.
	ExitCode int
}

// Exec runs commands on the host.
type Exec struct {
	// timeout bounds each run.
	timeout time.Duration
}

// NewExec creates a command runner with the given timeout.
func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Exec{timeout: timeout}
}

// Run executes path with args. A non-zero exit status is reported through
// Result.ExitCode; err is set only when the command could not run to completion.
func (e *Exec) Run(ctx context.Context, path string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the output pipes must not keep Run blocked after a kill.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("run %s: %w", path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()

		return result, nil
	}

	return result, fmt.Errorf("run %s: %w", path, err)
}
