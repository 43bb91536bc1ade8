// Package power queries the run state of VMs on the ESXi host.
package power

import (
	"context"
	"fmt"
	"strings"

	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/fgeck/esximanager/internal/vimcmd"
	"github.com/rs/zerolog"
)

// Service defines the interface for power state queries.
type Service interface {
	IsRunning(ctx context.Context, id int) (bool, error)
}

// Impl implements the power Service interface.
type Impl struct {
	remote executor.Executor
	logger zerolog.Logger
}

// New creates a new power state service reading through remote.
func New(logger zerolog.Logger, remote executor.Executor) *Impl {
	return &Impl{
		remote: remote,
		logger: logger,
	}
}

// IsRunning reports whether the VM is powered on. Any answer from the host
// other than "Powered on" counts as not running, including unknown ids. An
// error means the query could not be run and says nothing about the VM.
func (s *Impl) IsRunning(ctx context.Context, id int) (bool, error) {
	result, err := s.remote.Execute(ctx, vimcmd.PowerGetState(id))
	if err != nil {
		return false, fmt.Errorf("querying power state of VM %d: %w", id, err)
	}

	running := ParseState(result.Stdout)
	s.logger.Debug().Int("vm_id", id).Bool("running", running).Msg("power state")
	return running, nil
}

// ParseState classifies power.getstate output.
func ParseState(lines []string) bool {
	if len(lines) < 2 {
		return false
	}
	if !strings.Contains(lines[0], vimcmd.StateRetrievedMarker) {
		// Typically a vim.fault.NotFound for an id that no longer exists.
		return false
	}
	return strings.Contains(lines[1], vimcmd.PoweredOnMarker)
}
