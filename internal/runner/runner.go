package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every external command
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a command is killed at its deadline
var ErrTimeout = errors.New("command timed out")

// Runner executes an external command, feeding stdin and capturing stdout
type Runner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) (string, error)
}

// ExitError reports a command that ran to completion with a nonzero status
type ExitError struct {
	Name   string
	Code   int
	Stdout string
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

// Exec runs commands with os/exec under a per-call deadline
type Exec struct {
	Timeout time.Duration
}

// NewExec returns an Exec runner, using DefaultTimeout when timeout is not positive
func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exec{Timeout: timeout}
}

// Run starts name with args and waits for it. A process still running at the
// deadline is killed and ErrTimeout is returned; one killed because ctx was
// cancelled returns an error wrapping ctx.Err().
func (e *Exec) Run(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return stdout.String(), fmt.Errorf("%s after %s: %w", name, e.Timeout, ErrTimeout)
		}
		// Cancelled by the caller; the process may have been killed mid-way
		return stdout.String(), fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Name:   name,
				Code:   exitErr.ExitCode(),
				Stdout: stdout.String(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.String(), fmt.Errorf("failed to run %s: %w", name, err)
	}

	return stdout.String(), nil
}

// Func adapts an ordinary function to the Runner interface
type Func func(ctx context.Context, stdin string, name string, args ...string) (string, error)

// Run calls f
func (f Func) Run(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	return f(ctx, stdin, name, args...)
}
