package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/esximanager/internal/config"
	"github.com/fgeck/esximanager/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	logLevel   string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "esximanager",
	Short: "Unattended shutdown of a standalone ESXi host",
	Long: `esximanager shuts down a standalone ESXi host over SSH:
  - gracefully shuts down every running VM
  - powers off the VMs that do not stop in time
  - powers off the host and waits until it stops answering pings

It is meant to be triggered by a UPS monitor or another unattended caller.
The wake subcommand powers the host back on with Wake-on-LAN.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional, flags and ESXIMANAGER_* variables also work)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging() error {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level, an explicit --log-level wins over -v and -q.
	switch {
	case logLevel != "":
		level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		zerolog.SetGlobalLevel(level)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return nil
}

// loadConfig reads the config file if one was given, then layers environment
// variables and the command's flags on top.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	parser := config.NewParser()
	if err := parser.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if configFile == "" {
		return parser.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}
	return parser.LoadFile(configFile)
}

// addHostFlags registers the flags that identify and authenticate to the host.
func addHostFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "ESXi host name or address")
	cmd.Flags().Int("port", 0, "SSH port (default 22)")
	cmd.Flags().String("user", "", "SSH user (default root)")
	cmd.Flags().String("key", "", "path to the SSH private key")
	cmd.Flags().Bool("dry-run", false, "log state-changing commands instead of running them")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
