// Package inventory reads the list of VMs registered on the ESXi host.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/fgeck/esximanager/internal/vimcmd"
	"github.com/rs/zerolog"
)

// ErrMalformedLine is wrapped by every error about an unparsable inventory line.
var ErrMalformedLine = errors.New("malformed inventory line")

// Fields in an inventory line: id name datastore file guestOS version.
const lineFields = 6

// Service defines the interface for inventory operations.
type Service interface {
	List(ctx context.Context) (*models.Inventory, error)
}

// Impl implements the inventory Service interface.
type Impl struct {
	remote executor.Executor
	logger zerolog.Logger
}

// New creates a new inventory service reading through remote.
func New(logger zerolog.Logger, remote executor.Executor) *Impl {
	return &Impl{
		remote: remote,
		logger: logger,
	}
}

// List fetches and parses the host's VM listing. Malformed lines are logged and
// skipped; an error is returned only when the listing itself could not be fetched.
func (s *Impl) List(ctx context.Context) (*models.Inventory, error) {
	result, err := s.remote.Execute(ctx, vimcmd.GetAllVMs)
	if err != nil {
		return nil, fmt.Errorf("listing VMs: %w", err)
	}
	if !result.Succeeded {
		return nil, fmt.Errorf("listing VMs: %w", result.Error)
	}

	inv, errs := Parse(result.Stdout)
	for _, err := range errs {
		s.logger.Error().Err(err).Msg("skipping inventory line")
	}

	s.logger.Info().
		Int("vms", len(inv.VMs)).
		Int("skipped", len(inv.Malformed)).
		Msg("inventory taken")

	return inv, nil
}

// Parse turns getallvms output into an inventory. The first line is a header.
// Blank lines are ignored; every other line that cannot be parsed is reported
// in the returned errors and recorded in Inventory.Malformed.
func Parse(lines []string) (*models.Inventory, []error) {
	inv := &models.Inventory{VMs: map[int]models.VM{}}
	if len(lines) <= 1 {
		return inv, nil
	}

	var errs []error
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		vm, err := parseLine(line)
		if err == nil {
			if _, dup := inv.VMs[vm.ID]; dup {
				err = fmt.Errorf("%w: duplicate id %d: %q", ErrMalformedLine, vm.ID, line)
			}
		}
		if err != nil {
			inv.Malformed = append(inv.Malformed, line)
			errs = append(errs, err)
			continue
		}

		inv.VMs[vm.ID] = vm
	}

	return inv, errs
}

// parseLine maps the whitespace separated fields positionally. Fields past the
// sixth (the annotation) are ignored.
func parseLine(line string) (models.VM, error) {
	tokens := strings.Fields(line)
	if len(tokens) < lineFields {
		return models.VM{}, fmt.Errorf("%w: expected %d fields, got %d: %q", ErrMalformedLine, lineFields, len(tokens), line)
	}

	id, err := strconv.Atoi(tokens[0])
	if err != nil {
		return models.VM{}, fmt.Errorf("%w: invalid id %q: %q", ErrMalformedLine, tokens[0], line)
	}

	return models.VM{
		ID:        id,
		Name:      tokens[1],
		Datastore: tokens[2],
		File:      tokens[3],
		GuestOS:   tokens[4],
		Version:   tokens[5],
	}, nil
}
