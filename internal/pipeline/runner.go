package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes external tools. Success is determined solely by process
// exit status. An interface so that tests can substitute tool execution.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// CommandError reports a failed external process, surfacing the command
// identity and the failure reason.
type CommandError struct {
	Command string
	Args    []string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands via os/exec with a configurable timeout.
// Timeout zero means invocations block until the tool terminates.
type ExecRunner struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewExecRunner returns a runner with the given per-process timeout.
func NewExecRunner(timeout time.Duration, logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{Timeout: timeout, Logger: logger}
}

// Run invokes the command, capturing stderr for error reporting.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	r.Logger.Info("running command",
		zap.String("command", name),
		zap.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		return &CommandError{
			Command: name,
			Args:    args,
			Stderr:  lastLines(stderr.String(), 5),
			Err:     err,
		}
	}

	r.Logger.Debug("command finished",
		zap.String("command", name),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// lastLines returns the trailing n non-empty lines of s; tool stderr can
// be megabytes of progress output and only the tail explains failures.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
