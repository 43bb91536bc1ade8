package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/esximanager/internal/config"
	"github.com/fgeck/esximanager/internal/services/local"
	"github.com/fgeck/esximanager/internal/services/reachability"
	"github.com/fgeck/esximanager/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Power the ESXi host on with Wake-on-LAN",
	Long: `Send a Wake-on-LAN magic packet to the host and wait until it answers pings.

Requires wol.mac_address in the config file, ESXIMANAGER_WOL_MAC_ADDRESS or --mac.`,
	RunE: runWake,
}

func init() {
	wakeCmd.Flags().String("host", "", "ESXi host name or address")
	wakeCmd.Flags().String("mac", "", "MAC address of the host")
	wakeCmd.Flags().Bool("dry-run", false, "log the magic packet instead of sending it")
}

func runWake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	if err := config.ValidateWOL(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	// Waking is safe to abandon, unlike a shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, giving up")
		cancel()
	}()

	reachabilitySvc := reachability.New(log.Logger, local.New(log.Logger), cfg.ESXi.Host)
	wolSvc := wol.New(log.Logger, reachabilitySvc, cfg.Shutdown.DryRun)

	result, err := wolSvc.Wake(ctx, *cfg.WOL)
	if err != nil {
		log.Error().Err(err).Msg("wake failed")
		return err
	}
	if result.Error != nil {
		log.Error().
			Err(result.Error).
			Bool("packet_sent", result.PacketSent).
			Dur("duration", result.WaitDuration).
			Msg("wake failed")
		return result.Error
	}

	log.Info().
		Str("host", cfg.ESXi.Host).
		Dur("duration", result.WaitDuration).
		Msg("host is up")
	return nil
}
