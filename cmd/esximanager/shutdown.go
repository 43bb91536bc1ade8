package main

import (
	"context"
	"fmt"

	"github.com/fgeck/esximanager/internal/config"
	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/local"
	"github.com/fgeck/esximanager/internal/services/shutdown"
	"github.com/fgeck/esximanager/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Shut down all VMs and then the ESXi host",
	Long: `Execute the shutdown sequence:
1. List the VMs registered on the host
2. Gracefully shut down every running VM
3. Power off the VMs still running after the VM timeout
4. Power off the host
5. Wait until the host stops answering pings

With --dry-run, the inventory and power states are still read from the host
but no VM or host is touched.`,
	RunE: runShutdown,
}

func init() {
	// --host is optional here: esxi.host may come from the config file or
	// ESXIMANAGER_ESXI_HOST, and config.Validate reports it when missing.
	addHostFlags(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("host", cfg.ESXi.Host).
		Str("user", cfg.ESXi.Username).
		Bool("dry_run", cfg.Shutdown.DryRun).
		Dur("vm_timeout", cfg.Shutdown.VMPowerOffTimeout).
		Dur("host_timeout", cfg.Shutdown.HostPowerOffTimeout).
		Msg("configuration loaded")

	sshSvc := ssh.New(log.Logger, cfg.ESXi)
	defer func() { _ = sshSvc.Close() }()

	// Interrupting the process kills it outright. Turning a signal into a
	// cancelled context would make every wait time out and escalate to
	// forced power-off.
	orchestrator := shutdown.New(log.Logger, *cfg, sshSvc, local.New(log.Logger))
	result := orchestrator.Run(context.Background())

	logSummary(result)

	if result.Error != nil {
		return result.Error
	}
	if !result.HostConfirmedOff() {
		return fmt.Errorf("host %s was not confirmed powered off", cfg.ESXi.Host)
	}
	return nil
}

func logSummary(result *models.ShutdownResult) {
	event := log.Info()
	if !result.HostConfirmedOff() {
		event = log.Error()
	}

	event.
		Str("run_id", result.RunID).
		Bool("dry_run", result.DryRun).
		Int("vms_found", result.VMsFound).
		Int("skipped_lines", result.SkippedLines).
		Ints("running", result.RunningVMs).
		Str("graceful_wait", string(result.GracefulWait)).
		Ints("forced", result.ForcedVMs).
		Ints("still_running", result.StillRunning).
		Bool("host_poweroff_sent", result.HostPowerOffSent).
		Str("host_wait", string(result.HostWait)).
		Dur("duration", result.Duration).
		Err(result.Error).
		Msg("shutdown run finished")
}
