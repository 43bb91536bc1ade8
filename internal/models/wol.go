package models

import "time"

// WOLConfig holds Wake-on-LAN configuration.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string
	Timeout       time.Duration // max time to wait for the host to answer pings
	PollInterval  time.Duration // how often to ping the host
	StabilizeWait time.Duration // wait after the host responds
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent    bool
	HostReachable bool
	WaitDuration  time.Duration
	Error         error
}
