// Package execx runs the external platform tools (simctl, adb, emulator) and
// captures their output with a bounded wall-clock budget.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Result holds the captured output of a finished command. A non-zero exit is
// reported here, not as an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner is the execution contract the platform adapters depend on; tests
// swap in fakes.
type Runner interface {
	// Run executes a command and captures stdout, stderr and the exit code.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// Output runs the command and returns trimmed stdout, failing with
	// *ExitError when the command exits non-zero. This is the primary call
	// used by adapters.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// Spawn starts a detached long-running process and returns without
	// waiting for it. Stdio is discarded.
	Spawn(name string, args ...string) error
}

// NotFoundError reports an executable that is missing or not runnable. It is
// raised before any process is spawned.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string { return "executable not found: " + e.Name }
func (e *NotFoundError) Unwrap() error { return e.Err }

// TimeoutError reports a command that was killed after exceeding its budget.
// No partial output is returned alongside it.
type TimeoutError struct {
	Name  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s", e.Name, e.After)
}

// ExitError reports a non-zero exit together with the captured stderr.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.Code, e.Stderr)
}

// Executor is the Runner implementation backed by os/exec.
type Executor struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

// New returns an Executor that kills commands running longer than timeout.
// A zero timeout disables the default budget; callers may still bound
// individual calls through the context.
func New(timeout time.Duration, log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{timeout: timeout, log: log}
}

func (e *Executor) Run(ctx context.Context, name string, args ...string) (Result, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{}, &NotFoundError{Name: name, Err: err}
	}

	budget := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline)
	} else if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.log.WithFields(logrus.Fields{
		"cmd":      name,
		"args":     strings.Join(args, " "),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("command finished")

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Result{}, &TimeoutError{Name: name, After: budget}
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return Result{}, fmt.Errorf("run %s: %w", name, runErr)
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (e *Executor) Output(ctx context.Context, name string, args ...string) (string, error) {
	res, err := e.Run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &ExitError{Name: name, Code: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Spawn launches a process that outlives the caller, e.g. an emulator. The
// child is detached from our session and never waited on.
func (e *Executor) Spawn(name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return &NotFoundError{Name: name, Err: err}
	}

	cmd := exec.Command(path, args...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s: %w", name, err)
	}
	e.log.WithFields(logrus.Fields{"cmd": name, "pid": cmd.Process.Pid}).Debug("spawned background process")
	return cmd.Process.Release()
}
