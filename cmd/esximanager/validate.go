package main

import (
	"fmt"
	"time"

	"github.com/fgeck/esximanager/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration without connecting to the host.`,
	RunE:  validateConfig,
}

func init() {
	addHostFlags(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("ESXi Host:")
	fmt.Printf("  Host: %s\n", cfg.ESXi.Host)
	fmt.Printf("  Port: %d\n", cfg.ESXi.Port)
	fmt.Printf("  Username: %s\n", cfg.ESXi.Username)
	if cfg.ESXi.KeyPath != "" {
		fmt.Printf("  Key: %s\n", cfg.ESXi.KeyPath)
	}
	if cfg.ESXi.Password != "" {
		fmt.Printf("  Password: (configured)\n")
	}
	fmt.Printf("  Shell: %q\n", cfg.ESXi.Shell)
	fmt.Printf("  Command timeout: %s\n", cfg.ESXi.CommandTimeout)
	fmt.Println()
	fmt.Println("Shutdown:")
	fmt.Printf("  Dry run: %v\n", cfg.Shutdown.DryRun)
	fmt.Printf("  VM poll interval: %s\n", cfg.Shutdown.VMPollInterval)
	fmt.Printf("  VM power-off timeout: %s\n", describeTimeout(cfg.Shutdown.VMPowerOffTimeout))
	fmt.Printf("  Host poll interval: %s\n", cfg.Shutdown.HostPollInterval)
	fmt.Printf("  Host power-off timeout: %s\n", describeTimeout(cfg.Shutdown.HostPowerOffTimeout))
	fmt.Printf("  Host settle delay: %s\n", cfg.Shutdown.HostSettleDelay)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.WOL != nil)

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("WOL Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		fmt.Printf("  Timeout: %s\n", cfg.WOL.Timeout)
	}

	return nil
}

func describeTimeout(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}
