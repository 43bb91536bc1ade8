// Package config provides configuration parsing from file, environment and flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. ESXIMANAGER_ESXI_HOST for esxi.host.
const EnvPrefix = "ESXIMANAGER"

// Defaults.
const (
	DefaultPort                = 22
	DefaultUsername            = "root"
	DefaultShell               = "/bin/sh -l -c"
	DefaultConnectTimeout      = 30 * time.Second
	DefaultCommandTimeout      = 60 * time.Second
	DefaultVMPollInterval      = 2 * time.Second
	DefaultVMPowerOffTimeout   = 60 * time.Second
	DefaultHostPollInterval    = 2 * time.Second
	DefaultHostPowerOffTimeout = 60 * time.Second
	DefaultHostSettleDelay     = 5 * time.Second
	DefaultBroadcastIP         = "255.255.255.255"
	DefaultWOLTimeout          = 5 * time.Minute
	DefaultWOLPollInterval     = 10 * time.Second
	DefaultWOLStabilizeWait    = 10 * time.Second
)

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"host":    "esxi.host",
	"port":    "esxi.port",
	"user":    "esxi.username",
	"key":     "esxi.key_path",
	"dry-run": "shutdown.dry_run",
	"mac":     "wol.mac_address",
}

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser that also reads
// ESXIMANAGER_* environment variables.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Parser{v: v}
}

// BindFlags binds the known flags present in fs. Flags given on the command
// line take precedence over environment and file values.
func (p *Parser) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := p.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Load builds the configuration from environment and flags only.
func (p *Parser) Load() (*models.Config, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.ESXi = models.ESXiConfig{
		Host:           p.v.GetString("esxi.host"),
		Port:           p.v.GetInt("esxi.port"),
		Username:       p.v.GetString("esxi.username"),
		Password:       p.expandEnv(p.v.GetString("esxi.password")),
		KeyPath:        p.expandEnv(p.v.GetString("esxi.key_path")),
		Shell:          p.v.GetString("esxi.shell"),
		ConnectTimeout: p.v.GetDuration("esxi.connect_timeout"),
		CommandTimeout: p.durationOr("esxi.command_timeout", DefaultCommandTimeout),
	}

	if cfg.ESXi.Port == 0 {
		cfg.ESXi.Port = DefaultPort
	}
	if cfg.ESXi.Port < 0 || cfg.ESXi.Port > 65535 {
		return nil, fmt.Errorf("esxi.port must be between 1 and 65535")
	}
	if cfg.ESXi.Username == "" {
		cfg.ESXi.Username = DefaultUsername
	}
	if !p.v.IsSet("esxi.shell") {
		cfg.ESXi.Shell = DefaultShell
	}
	if cfg.ESXi.ConnectTimeout <= 0 {
		cfg.ESXi.ConnectTimeout = DefaultConnectTimeout
	}

	cfg.Shutdown = models.ShutdownConfig{
		DryRun:              p.v.GetBool("shutdown.dry_run"),
		VMPollInterval:      p.v.GetDuration("shutdown.vm_poll_interval"),
		VMPowerOffTimeout:   p.durationOr("shutdown.vm_poweroff_timeout", DefaultVMPowerOffTimeout),
		HostPollInterval:    p.v.GetDuration("shutdown.host_poll_interval"),
		HostPowerOffTimeout: p.durationOr("shutdown.host_poweroff_timeout", DefaultHostPowerOffTimeout),
		HostSettleDelay:     p.durationOr("shutdown.host_settle_delay", DefaultHostSettleDelay),
	}

	// A zero interval would spin; zero or negative timeouts mean wait forever.
	if cfg.Shutdown.VMPollInterval <= 0 {
		cfg.Shutdown.VMPollInterval = DefaultVMPollInterval
	}
	if cfg.Shutdown.HostPollInterval <= 0 {
		cfg.Shutdown.HostPollInterval = DefaultHostPollInterval
	}

	if p.v.IsSet("wol") || p.v.IsSet("wol.mac_address") { //nolint:nestif // config parsing with defaults
		cfg.WOL = &models.WOLConfig{
			MACAddress:    p.v.GetString("wol.mac_address"),
			BroadcastIP:   p.v.GetString("wol.broadcast_ip"),
			Timeout:       p.v.GetDuration("wol.timeout"),
			PollInterval:  p.v.GetDuration("wol.poll_interval"),
			StabilizeWait: p.v.GetDuration("wol.stabilize_wait"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}

		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = DefaultBroadcastIP
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = DefaultWOLTimeout
		}
		if cfg.WOL.PollInterval <= 0 {
			cfg.WOL.PollInterval = DefaultWOLPollInterval
		}
		if cfg.WOL.StabilizeWait == 0 {
			cfg.WOL.StabilizeWait = DefaultWOLStabilizeWait
		}
	}

	return cfg, nil
}

// durationOr returns the duration at key, or def when the key was never set.
// An explicit zero is kept.
func (p *Parser) durationOr(key string, def time.Duration) time.Duration {
	if !p.v.IsSet(key) {
		return def
	}
	return p.v.GetDuration(key)
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

var validate = validator.New()

// validateHost accepts an RFC 1123 host name or an IP address. The host ends up
// as a program argument, so anything else (options, shell syntax) is refused.
func validateHost(host string) error {
	if host == "" {
		return fmt.Errorf("esxi.host is required")
	}
	if err := validate.Var(host, "hostname_rfc1123|ip"); err != nil {
		return fmt.Errorf("esxi.host %q is not a valid host name or IP address", host)
	}
	return nil
}

// Validate checks that the configuration can drive a shutdown.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := validateHost(cfg.ESXi.Host); err != nil {
		return err
	}

	if cfg.ESXi.KeyPath == "" && len(cfg.ESXi.PrivateKey) == 0 && cfg.ESXi.Password == "" {
		return fmt.Errorf("esxi.key_path or esxi.password is required")
	}

	return nil
}

// ValidateWOL checks that the configuration can drive a wake.
func ValidateWOL(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.WOL == nil || cfg.WOL.MACAddress == "" {
		return fmt.Errorf("wol.mac_address is required")
	}

	return validateHost(cfg.ESXi.Host)
}
