// Package vimcmd holds the commands esximanager runs on an ESXi host and the
// markers it looks for in their output.
package vimcmd

import "fmt"

// GetAllVMs lists every registered VM. Its first output line is a column header.
const GetAllVMs = "vim-cmd vmsvc/getallvms"

// HostPowerOff powers off the ESXi host itself.
const HostPowerOff = "poweroff"

// Markers found in the output of power.getstate.
const (
	StateRetrievedMarker = "Retrieved runtime info"
	PoweredOnMarker      = "Powered on"
)

// PowerGetState queries the run state of a VM.
func PowerGetState(id int) string {
	return fmt.Sprintf("vim-cmd vmsvc/power.getstate %d", id)
}

// PowerShutdown asks the guest OS of a VM to shut down cleanly.
func PowerShutdown(id int) string {
	return fmt.Sprintf("vim-cmd vmsvc/power.shutdown %d", id)
}

// PowerOff powers off a VM without involving the guest OS.
func PowerOff(id int) string {
	return fmt.Sprintf("vim-cmd vmsvc/power.off %d", id)
}

// Ping returns the argv of a single ICMP echo with a one second deadline. It
// runs locally and is passed to the program directly, never to a shell.
func Ping(host string) []string {
	return []string{"ping", "-c", "1", "-w", "1", host}
}
