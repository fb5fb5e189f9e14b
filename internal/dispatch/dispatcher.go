package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jvmancuso/gridmesh/internal/command"
	"github.com/jvmancuso/gridmesh/internal/observability"
	"github.com/jvmancuso/gridmesh/internal/registry"
	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/transport"
	"github.com/jvmancuso/gridmesh/internal/wire"
)

var ErrUnknownResultType = errors.New("dispatch: unknown result type in response")

// Dispatcher compiles captured calls, resolves their location, and executes
// them in-process or against the owning worker. Every remote exchange is
// synchronous, sequential, and attempted exactly once.
type Dispatcher struct {
	reg       *registry.Registry
	messenger transport.Messenger
	log       zerolog.Logger
}

// New builds a dispatcher over one registry and messenger.
func New(reg *registry.Registry, messenger transport.Messenger, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, messenger: messenger, log: log}
}

// Dispatch runs one captured call to completion: a concrete value for local
// or scalar results, or a registered pointer for remote object results.
func (d *Dispatcher) Dispatch(call command.Call, hasSelf bool) (any, error) {
	start := time.Now()

	cmd, err := command.Compile(call, hasSelf)
	if err != nil {
		return nil, err
	}
	placement, err := Resolve(cmd, d.reg)
	if err != nil {
		observability.RecordDispatch(d.reg.WorkerID(), cmd.Name, observability.ModeLocal, err, time.Since(start))
		return nil, err
	}

	if !placement.Remote {
		result, err := d.runLocal(call)
		observability.RecordDispatch(d.reg.WorkerID(), cmd.Name, observability.ModeLocal, err, time.Since(start))
		return result, err
	}

	result, err := d.forward(cmd, placement.Owners)
	observability.RecordDispatch(d.reg.WorkerID(), cmd.Name, observability.ModeRemote, err, time.Since(start))
	return result, err
}

// runLocal executes the captured call in-process and registers tracked
// results as fresh non-pointer objects.
func (d *Dispatcher) runLocal(call command.Call) (any, error) {
	result, err := call.Kernel(call.Args, call.Kwargs)
	if err != nil {
		return nil, err
	}
	if t, ok := result.(*tensor.Tensor); ok && t.ID == "" {
		return d.reg.Register(t, registry.WithPointer(false))
	}
	return result, nil
}

// forward sends the reference-only command to each owner in sequence.
// Operands are assumed identical across the owner set, so only the last
// pointer response is kept; a scalar response returns immediately.
func (d *Dispatcher) forward(cmd command.Command, owners []string) (any, error) {
	payload, err := wire.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	var pointer *tensor.Tensor
	for _, worker := range owners {
		d.log.Debug().Str("op", cmd.Name).Str("worker", worker).Msg("forwarding command")
		result, err := d.messenger.RequestResponse(
			transport.CommandChannel(worker), payload, d.handleResponse)
		if err != nil {
			return nil, err
		}
		switch v := result.(type) {
		case *tensor.Tensor:
			pointer = v
		default:
			return v, nil
		}
	}
	return pointer, nil
}

// handleResponse decodes one tagged response into a scalar, a registered
// pointer, or a propagated remote failure.
func (d *Dispatcher) handleResponse(raw []byte) (any, error) {
	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	switch resp.Kind {
	case wire.ErrorResult:
		return nil, fmt.Errorf("%w: %s", wire.ErrRemoteFailure, resp.Message)
	case wire.ScalarResult:
		return resp.Numeric, nil
	default:
		return d.assemblePointer(resp)
	}
}

// assemblePointer constructs a zero-sized local stand-in for a remote
// result and registers it under the response's metadata.
func (d *Dispatcher) assemblePointer(resp wire.Response) (*tensor.Tensor, error) {
	if resp.ResultType != tensor.TypeName {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResultType, resp.ResultType)
	}
	return d.reg.Register(tensor.Placeholder(),
		registry.WithID(resp.Registration.ID),
		registry.WithOwners(resp.Registration.Owners),
		registry.WithPointer(resp.Registration.IsPointer),
	)
}
