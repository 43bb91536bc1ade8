// Package dryrun provides an executor that accepts every command without running it.
package dryrun

import (
	"context"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/rs/zerolog"
)

// Impl reports success for every command and only logs it.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new dry-run executor.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

var _ executor.Executor = (*Impl)(nil)

// Execute logs command and reports it succeeded.
func (s *Impl) Execute(_ context.Context, command string) (*models.CommandResult, error) {
	s.logger.Info().Str("command", command).Msg("dry run, not executing command")
	return &models.CommandResult{Command: command, Succeeded: true}, nil
}
