// Package local runs commands on the machine esximanager itself runs on.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/rs/zerolog"
)

// CommandRunner allows mocking exec.Command in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// DefaultRunner is the default command runner using os/exec.
type DefaultRunner struct{}

// Run runs a command and returns its stdout and stderr.
func (r *DefaultRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Impl implements executor.Runner for programs on the local machine.
type Impl struct {
	runner CommandRunner
	logger zerolog.Logger
}

// New creates a new local runner.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		runner: &DefaultRunner{},
		logger: logger,
	}
}

// NewWithRunner creates a new local runner with a custom command runner (for testing).
func NewWithRunner(logger zerolog.Logger, runner CommandRunner) *Impl {
	return &Impl{
		runner: runner,
		logger: logger,
	}
}

var _ executor.Runner = (*Impl)(nil)

// Run executes name with args. No shell is involved.
func (s *Impl) Run(ctx context.Context, name string, args ...string) (*models.CommandResult, error) {
	command := strings.Join(append([]string{name}, args...), " ")
	s.logger.Debug().Str("program", name).Strs("args", args).Msg("executing local command")

	stdout, stderr, err := s.runner.Run(ctx, name, args...)

	result := &models.CommandResult{
		Command: command,
		Stdout:  executor.SplitLines(string(stdout)),
		Stderr:  strings.TrimSpace(string(stderr)),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Succeeded = true
	case errors.As(err, &exitErr):
		result.Error = fmt.Errorf("command exited with status %d: %s", exitErr.ExitCode(), result.Stderr)
	default:
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	s.logger.Debug().
		Str("command", command).
		Bool("succeeded", result.Succeeded).
		Strs("stdout", result.Stdout).
		Str("stderr", result.Stderr).
		Msg("local command completed")

	return result, nil
}
