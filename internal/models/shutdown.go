package models

import (
	"time"

	"github.com/fgeck/esximanager/internal/poll"
)

// ShutdownResult holds the result of a shutdown run.
type ShutdownResult struct {
	RunID  string
	DryRun bool

	// Inventory.
	VMsFound     int
	SkippedLines int   // malformed inventory lines
	RunningVMs   []int // powered on when the run started

	// Graceful phase.
	GracefulFailures []int // VMs the shutdown command could not be issued to
	GracefulWait     poll.Outcome

	// Forced phase, only populated after the graceful wait timed out.
	ForcedVMs      []int
	ForcedFailures []int
	ForcedWait     poll.Outcome

	// VMs still believed to be powered on when the host power-off was issued.
	StillRunning []int

	// Host phase.
	HostPowerOffSent bool
	HostWait         poll.Outcome

	Duration time.Duration
	Error    error // set when the run stopped before powering off the host
}

// HostConfirmedOff reports whether the host was observed unreachable after the
// power-off command was sent.
func (r *ShutdownResult) HostConfirmedOff() bool {
	return r.Error == nil && r.HostPowerOffSent && r.HostWait == poll.OK
}

// AllVMsStopped reports whether every VM that was running has been observed stopped.
func (r *ShutdownResult) AllVMsStopped() bool {
	return r.Error == nil && len(r.StillRunning) == 0
}
