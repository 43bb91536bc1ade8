package models

import "sort"

// VM is one entry of the host's VM inventory.
type VM struct {
	ID        int
	Name      string
	Datastore string
	File      string
	GuestOS   string
	Version   string
}

// CommandResult holds the outcome of a single executed command.
type CommandResult struct {
	Command   string
	Stdout    []string
	Stderr    string
	Succeeded bool
	Error     error // non-nil when Succeeded is false
}

// Inventory is one snapshot of the VMs registered on the host.
type Inventory struct {
	VMs       map[int]VM
	Malformed []string // raw lines that could not be parsed
}

// IDs returns the VM ids in ascending order.
func (i *Inventory) IDs() []int {
	ids := make([]int, 0, len(i.VMs))
	for id := range i.VMs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
