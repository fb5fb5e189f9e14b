package mesh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jvmancuso/gridmesh/internal/observability"
	"github.com/jvmancuso/gridmesh/internal/registry"
	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/transport"
	"github.com/jvmancuso/gridmesh/internal/wire"
)

var (
	ErrNoDestinations = errors.New("mesh: send requires at least one destination")
	ErrUnregistered   = errors.New("mesh: tensor is not registered")
)

// Reduce folds payloads collected from multiple owners into one.
type Reduce func(collected []*tensor.Tensor) *tensor.Tensor

// FirstOf is the default reduce: it selects the first collected payload
// and performs no real merge.
func FirstOf(collected []*tensor.Tensor) *tensor.Tensor {
	return collected[0]
}

// Send moves a tensor's authoritative data to the destination workers and
// leaves a zero-sized pointer behind under the same id. Delivery is
// sequential and not atomic: a failed publish aborts with the registry
// already claiming the new owners.
func (e *Engine) Send(t *tensor.Tensor, destinations ...string) (*tensor.Tensor, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if t.ID == "" {
		return nil, ErrUnregistered
	}
	dests := normalizeDestinations(destinations)
	if len(dests) == 0 {
		observability.RecordObjectMove(e.WorkerID(), observability.DirectionSend, ErrNoDestinations)
		return nil, ErrNoDestinations
	}

	if _, err := e.reg.Register(t, registry.WithID(t.ID), registry.WithOwners(dests)); err != nil {
		return nil, err
	}

	payload, err := wire.SerializeObject(t, true)
	if err != nil {
		return nil, err
	}
	for _, dest := range dests {
		e.log.Debug().Str("id", t.ID).Str("dest", dest).Msg("sending object")
		if err := e.messenger.Publish(transport.ObjectChannel(dest), payload); err != nil {
			observability.RecordObjectMove(e.WorkerID(), observability.DirectionSend, err)
			return nil, fmt.Errorf("sending object %s to %s: %w", t.ID, dest, err)
		}
	}

	t.BecomePlaceholder()
	if _, err := e.reg.Register(t,
		registry.WithID(t.ID),
		registry.WithOwners(dests),
		registry.WithPointer(true),
	); err != nil {
		return nil, err
	}
	observability.RecordObjectMove(e.WorkerID(), observability.DirectionSend, nil)
	return t, nil
}

// Get retrieves a pointer's data from its current owners. Payloads are
// collected in owner order, reduced to one, and stored back under the
// original id as a non-pointer. Owners deliberately keep their previous
// value rather than resetting to the local worker.
func (e *Engine) Get(t *tensor.Tensor, reduce Reduce) (*tensor.Tensor, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if t.ID == "" {
		return nil, ErrUnregistered
	}
	if reduce == nil {
		reduce = FirstOf
	}
	for _, owner := range t.Owners {
		if owner == e.WorkerID() {
			return t, nil
		}
	}

	request, err := wire.EncodeObjectRequest(t.ID)
	if err != nil {
		return nil, err
	}
	collected := make([]*tensor.Tensor, 0, len(t.Owners))
	for _, owner := range t.Owners {
		e.log.Debug().Str("id", t.ID).Str("owner", owner).Msg("requesting object")
		result, err := e.messenger.RequestResponse(
			transport.ObjectRequestChannel(owner), request, e.receiveObject)
		if err != nil {
			observability.RecordObjectMove(e.WorkerID(), observability.DirectionGet, err)
			return nil, fmt.Errorf("requesting object %s from %s: %w", t.ID, owner, err)
		}
		collected = append(collected, result.(*tensor.Tensor))
	}

	t.Adopt(reduce(collected))
	if _, err := e.reg.Register(t,
		registry.WithID(t.ID),
		registry.WithOwners(t.Owners),
		registry.WithPointer(false),
	); err != nil {
		return nil, err
	}
	observability.RecordObjectMove(e.WorkerID(), observability.DirectionGet, nil)
	return t, nil
}

// receiveObject decodes one retrieved payload and registers it as a fresh
// local non-pointer object under its original id.
func (e *Engine) receiveObject(raw []byte) (any, error) {
	payload, x, err := wire.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	return e.reg.Register(x, registry.WithID(payload.ID), registry.WithPointer(false))
}

func normalizeDestinations(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, dest := range in {
		dest = strings.TrimSpace(dest)
		if dest == "" || seen[dest] {
			continue
		}
		seen[dest] = true
		out = append(out, dest)
	}
	return out
}
