// Package models contains the data structures used throughout esximanager.
package models

import "time"

// Config holds the complete configuration for an esximanager run.
type Config struct {
	ESXi     ESXiConfig
	Shutdown ShutdownConfig
	WOL      *WOLConfig // nil if not configured
}

// ESXiConfig holds the connection settings for the ESXi host.
type ESXiConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string // optional, used when no key is configured
	PrivateKey     []byte // loaded from file path
	KeyPath        string // path to key file
	Shell          string // e.g. "/bin/sh -l -c"; empty runs commands unwrapped
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// ShutdownConfig holds the timing and mode settings for a shutdown run.
type ShutdownConfig struct {
	DryRun              bool
	VMPollInterval      time.Duration
	VMPowerOffTimeout   time.Duration // <= 0 means no timeout
	HostPollInterval    time.Duration
	HostPowerOffTimeout time.Duration // <= 0 means no timeout
	HostSettleDelay     time.Duration // wait after the host stops answering pings
}
