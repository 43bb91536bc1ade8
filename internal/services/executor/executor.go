// Package executor defines how esximanager runs commands, on the ESXi host or locally.
package executor

import (
	"context"
	"strings"

	"github.com/fgeck/esximanager/internal/models"
)

// Executor runs a single command and returns its output.
//
// The returned error is reserved for commands that could not be run at all
// (connection, session or context failures). A command that ran and failed is
// reported through CommandResult.Succeeded.
type Executor interface {
	Execute(ctx context.Context, command string) (*models.CommandResult, error)
}

// Func adapts an ordinary function to the Executor interface.
type Func func(ctx context.Context, command string) (*models.CommandResult, error)

// Execute calls f(ctx, command).
func (f Func) Execute(ctx context.Context, command string) (*models.CommandResult, error) {
	return f(ctx, command)
}

// Runner runs a program directly, without a shell, so its arguments are
// never interpreted. Results follow the same contract as Executor.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*models.CommandResult, error)
}

// RunFunc adapts an ordinary function to the Runner interface.
type RunFunc func(ctx context.Context, name string, args ...string) (*models.CommandResult, error)

// Run calls f(ctx, name, args...).
func (f RunFunc) Run(ctx context.Context, name string, args ...string) (*models.CommandResult, error) {
	return f(ctx, name, args...)
}

// Succeeded runs command and reports whether it ran and exited successfully,
// along with the failure cause when it did not.
func Succeeded(ctx context.Context, e Executor, command string) (bool, error) {
	result, err := e.Execute(ctx, command)
	if err != nil {
		return false, err
	}
	if !result.Succeeded {
		return false, result.Error
	}
	return true, nil
}

// SplitLines splits command output into lines, dropping the trailing newline
// and carriage returns. Empty output yields no lines.
func SplitLines(output string) []string {
	output = strings.TrimRight(output, "\r\n")
	if output == "" {
		return nil
	}
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
