package dispatch

import (
	"errors"
	"fmt"

	"github.com/jvmancuso/gridmesh/internal/command"
	"github.com/jvmancuso/gridmesh/internal/registry"
)

var (
	// ErrMultipleOwners is the unsupported-feature rejection for operand
	// sets spanning more than one worker. Never retried or approximated.
	ErrMultipleOwners = errors.New("dispatch: operands owned by multiple workers, cross-owner computation is not supported")

	ErrUnknownOperand = errors.New("dispatch: operand not tracked in local registry")
)

// Placement is the resolved execution location for one command.
type Placement struct {
	Remote bool
	Owners []string
}

// Resolve partitions a command's tensor operands into local and remote by
// pointer state and yields the single owner set a remote command targets.
func Resolve(cmd command.Command, reg *registry.Registry) (Placement, error) {
	var owners []string
	seen := map[string]bool{}

	for _, ref := range cmd.Refs() {
		handle, ok := reg.Lookup(ref.ID)
		if !ok {
			return Placement{}, fmt.Errorf("%w: %s", ErrUnknownOperand, ref.ID)
		}
		if !handle.IsPointer {
			continue
		}
		for _, owner := range handle.Owners {
			if seen[owner] {
				continue
			}
			seen[owner] = true
			owners = append(owners, owner)
		}
	}

	if len(owners) == 0 {
		return Placement{}, nil
	}
	if len(owners) > 1 {
		return Placement{}, fmt.Errorf("%w: owners %v", ErrMultipleOwners, owners)
	}
	return Placement{Remote: true, Owners: owners}, nil
}
