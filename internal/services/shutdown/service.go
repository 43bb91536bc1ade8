// Package shutdown orchestrates the unattended shutdown of an ESXi host: its
// running VMs first, gracefully and then forcefully, then the host itself.
package shutdown

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/poll"
	"github.com/fgeck/esximanager/internal/services/dryrun"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/fgeck/esximanager/internal/services/inventory"
	"github.com/fgeck/esximanager/internal/services/power"
	"github.com/fgeck/esximanager/internal/services/reachability"
	"github.com/fgeck/esximanager/internal/vimcmd"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service defines the interface for the shutdown orchestrator.
type Service interface {
	Run(ctx context.Context) *models.ShutdownResult
}

// Impl implements the shutdown Service interface.
type Impl struct {
	inventorySvc    inventory.Service
	powerSvc        power.Service
	reachabilitySvc reachability.Service
	control         executor.Executor // receives every state-changing command
	cfg             models.ShutdownConfig
	host            string
	runID           string
	logger          zerolog.Logger
}

// New creates a new orchestrator. Queries go to remote, pings run through
// local. In dry-run mode state-changing commands go to a dry-run executor
// instead of remote. Every log line carries the run's id.
func New(logger zerolog.Logger, cfg models.Config, remote executor.Executor, local executor.Runner) *Impl {
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()

	control := remote
	if cfg.Shutdown.DryRun {
		control = dryrun.New(logger)
	}

	return newImpl(
		logger,
		runID,
		cfg.ESXi.Host,
		cfg.Shutdown,
		inventory.New(logger, remote),
		power.New(logger, remote),
		reachability.New(logger, local, cfg.ESXi.Host),
		control,
	)
}

// NewWithServices creates a new orchestrator with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	host string,
	cfg models.ShutdownConfig,
	inventorySvc inventory.Service,
	powerSvc power.Service,
	reachabilitySvc reachability.Service,
	control executor.Executor,
) *Impl {
	runID := uuid.NewString()
	return newImpl(
		logger.With().Str("run_id", runID).Logger(),
		runID,
		host,
		cfg,
		inventorySvc,
		powerSvc,
		reachabilitySvc,
		control,
	)
}

func newImpl(
	logger zerolog.Logger,
	runID string,
	host string,
	cfg models.ShutdownConfig,
	inventorySvc inventory.Service,
	powerSvc power.Service,
	reachabilitySvc reachability.Service,
	control executor.Executor,
) *Impl {
	return &Impl{
		inventorySvc:    inventorySvc,
		powerSvc:        powerSvc,
		reachabilitySvc: reachabilitySvc,
		control:         control,
		cfg:             cfg,
		host:            host,
		runID:           runID,
		logger:          logger,
	}
}

// Run shuts down every running VM and then the host. It never gives up midway
// on a VM-level failure: VMs that do not stop gracefully are powered off, and
// the host is powered off whether or not they all stopped. The only early exit
// is an unreadable inventory, in which case nothing is powered off.
func (s *Impl) Run(ctx context.Context) *models.ShutdownResult {
	start := time.Now()
	result := &models.ShutdownResult{RunID: s.runID, DryRun: s.cfg.DryRun}
	defer func() { result.Duration = time.Since(start) }()

	s.logger.Info().
		Str("host", s.host).
		Bool("dry_run", s.cfg.DryRun).
		Msg("starting shutdown run")

	inv, err := s.inventorySvc.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("host", s.host).Msg("unable to read VM inventory, not powering anything off")
		result.Error = fmt.Errorf("inventory failed: %w", err)
		return result
	}
	result.VMsFound = len(inv.VMs)
	result.SkippedLines = len(inv.Malformed)

	running := s.runningVMs(ctx, inv)
	result.RunningVMs = slices.Clone(running)

	// Graceful phase.
	result.GracefulFailures = s.issue(ctx, inv, running, vimcmd.PowerShutdown, "shutdown")
	outcome, remaining := s.WaitForVMs(ctx, running)
	result.GracefulWait = outcome

	// Forced phase.
	if outcome != poll.OK {
		s.logger.Warn().
			Ints("vm_ids", remaining).
			Msg("not all VMs shut down cleanly, powering them off forcefully")

		result.ForcedVMs = slices.Clone(remaining)
		result.ForcedFailures = s.issue(ctx, inv, remaining, vimcmd.PowerOff, "power off")
		outcome, remaining = s.WaitForVMs(ctx, remaining)
		result.ForcedWait = outcome

		s.logger.Warn().
			Str("outcome", string(outcome)).
			Ints("still_running", remaining).
			Msg("after forcefully powering off VMs")
	}
	result.StillRunning = remaining

	// Host phase.
	s.logger.Info().Str("host", s.host).Msg("VM phase finished, powering off host")
	if ok, err := executor.Succeeded(ctx, s.control, vimcmd.HostPowerOff); !ok {
		s.logger.Error().
			Err(err).
			Str("host", s.host).
			Msg("unable to issue host power off, the host's final power state is unknown")
		return result
	}
	result.HostPowerOffSent = true

	result.HostWait = s.waitForHost(ctx)
	if result.HostWait != poll.OK {
		s.logger.Error().
			Str("host", s.host).
			Str("outcome", string(result.HostWait)).
			Msg("host still answers pings, its final power state is unknown")
		return result
	}

	s.logger.Info().Str("host", s.host).Msg("host is powered off")
	s.settle(ctx)

	return result
}

// runningVMs returns the ids, in ascending order, of the VMs currently powered on.
func (s *Impl) runningVMs(ctx context.Context, inv *models.Inventory) []int {
	var running []int
	for _, id := range inv.IDs() {
		on, err := s.powerSvc.IsRunning(ctx, id)
		if err != nil {
			// Unknown state: treat it as running so the VM is still shut down and waited for.
			s.logger.Warn().Err(err).Int("vm_id", id).Msg("unable to query power state, assuming running")
			on = true
		}
		if on {
			running = append(running, id)
		}
	}

	s.logger.Info().
		Int("vms", len(inv.VMs)).
		Ints("running", running).
		Msg("running VMs identified")

	return running
}

// issue sends command(id) for every id and returns the ids it could not be
// sent to. Failures are logged and otherwise ignored.
func (s *Impl) issue(ctx context.Context, inv *models.Inventory, ids []int, command func(int) string, action string) []int {
	var failed []int
	for _, id := range ids {
		ok, err := executor.Succeeded(ctx, s.control, command(id))
		if ok {
			s.logger.Debug().Int("vm_id", id).Str("action", action).Msg("command issued")
			continue
		}

		vm := inv.VMs[id]
		s.logger.Error().
			Err(err).
			Int("vm_id", id).
			Str("name", vm.Name).
			Str("file", vm.File).
			Str("action", action).
			Msg("unable to issue command for VM")
		failed = append(failed, id)
	}
	return failed
}

// WaitForVMs polls the power state of every tracked VM until none is running
// or the VM timeout elapses. It returns the outcome and the VMs still running,
// which is empty unless the outcome is TIMEDOUT. In dry-run mode it returns OK
// without probing.
func (s *Impl) WaitForVMs(ctx context.Context, ids []int) (poll.Outcome, []int) {
	tracked := slices.Clone(ids)
	if len(tracked) == 0 {
		return poll.OK, nil
	}

	check := func(ctx context.Context) poll.Outcome {
		if s.cfg.DryRun {
			s.logger.Info().Msg("dry run, not waiting for VMs")
			return poll.OK
		}

		// Probe everything first, then drop the stopped ones. A VM whose
		// state could not be queried stays tracked.
		stopped := map[int]bool{}
		for _, id := range tracked {
			running, err := s.powerSvc.IsRunning(ctx, id)
			if err != nil {
				s.logger.Warn().Err(err).Int("vm_id", id).Msg("unable to query power state, still waiting")
				continue
			}
			if !running {
				stopped[id] = true
			}
		}
		tracked = slices.DeleteFunc(tracked, func(id int) bool { return stopped[id] })

		if len(tracked) == 0 {
			return poll.OK
		}

		s.logger.Info().
			Int("remaining", len(tracked)).
			Dur("poll_interval", s.cfg.VMPollInterval).
			Msg("waiting for VMs to shut down")
		return poll.Wait
	}

	outcome := poll.WaitFor(ctx, check, s.cfg.VMPollInterval, s.cfg.VMPowerOffTimeout)
	if outcome == poll.OK {
		return poll.OK, nil
	}
	return outcome, tracked
}

// waitForHost polls until the host stops answering pings. In dry-run mode it
// returns OK without pinging.
func (s *Impl) waitForHost(ctx context.Context) poll.Outcome {
	if s.cfg.DryRun {
		s.logger.Info().Str("host", s.host).Msg("dry run, not waiting for host")
		return poll.OK
	}

	s.logger.Info().
		Str("host", s.host).
		Dur("timeout", s.cfg.HostPowerOffTimeout).
		Msg("waiting for host to stop answering pings")

	return s.reachabilitySvc.AwaitUnreachable(ctx, s.cfg.HostPollInterval, s.cfg.HostPowerOffTimeout)
}

// settle gives the host a little longer to finish powering off once it has
// gone quiet on the network.
func (s *Impl) settle(ctx context.Context) {
	if s.cfg.DryRun || s.cfg.HostSettleDelay <= 0 {
		return
	}

	s.logger.Debug().Dur("delay", s.cfg.HostSettleDelay).Msg("waiting for host to settle")
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.HostSettleDelay):
	}
}
