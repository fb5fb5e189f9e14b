package worker

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jvmancuso/gridmesh/internal/command"
	"github.com/jvmancuso/gridmesh/internal/hook"
	"github.com/jvmancuso/gridmesh/internal/registry"
	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/transport"
	"github.com/jvmancuso/gridmesh/internal/wire"
)

var (
	ErrUnknownOperation = errors.New("worker: unknown operation")
	ErrUnknownObject    = errors.New("worker: object not tracked")
	ErrBadResult        = errors.New("worker: kernel returned unsupported result")
)

// Service answers the three per-worker channels: command execution, pushed
// object ingestion, and object retrieval. Commands execute through the
// adapter table's stashed originals against the local registry.
type Service struct {
	reg   *registry.Registry
	table *hook.Table
	log   zerolog.Logger
}

// New builds a worker service over one registry and adapter table.
func New(reg *registry.Registry, table *hook.Table, log zerolog.Logger) *Service {
	return &Service{reg: reg, table: table, log: log}
}

// Attach subscribes the service endpoints for this worker's channels.
func (s *Service) Attach(sub transport.Subscriber) error {
	workerID := s.reg.WorkerID()
	if err := sub.Subscribe(transport.CommandChannel(workerID), s.HandleCommand); err != nil {
		return err
	}
	if err := sub.Subscribe(transport.ObjectChannel(workerID), s.HandleObject); err != nil {
		return err
	}
	return sub.Subscribe(transport.ObjectRequestChannel(workerID), s.HandleObjectRequest)
}

// HandleCommand executes one received command and answers with the tagged
// response variant. Application failures become error responses, never
// transport errors.
func (s *Service) HandleCommand(raw []byte) ([]byte, error) {
	cmd, err := wire.DecodeCommand(raw)
	if err != nil {
		return wire.EncodeResponse(wire.ErrorResponse(err))
	}
	s.log.Debug().Str("op", cmd.Name).Bool("has_self", cmd.HasSelf).Msg("executing command")

	result, err := s.execute(cmd)
	if err != nil {
		s.log.Warn().Err(err).Str("op", cmd.Name).Msg("command failed")
		return wire.EncodeResponse(wire.ErrorResponse(err))
	}
	return s.respond(result)
}

func (s *Service) execute(cmd command.Command) (any, error) {
	kernel, ok := s.table.Original(cmd.Name, cmd.HasSelf)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, cmd.Name)
	}

	args := make([]any, 0, len(cmd.Args)+1)
	if cmd.HasSelf {
		self, err := s.materialize(*cmd.Self)
		if err != nil {
			return nil, err
		}
		args = append(args, self)
	}
	for i := range cmd.Args {
		arg, err := s.materialize(cmd.Args[i])
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	kwargs := make(map[string]any, len(cmd.Kwargs))
	for name, op := range cmd.Kwargs {
		arg, err := s.materialize(op)
		if err != nil {
			return nil, err
		}
		kwargs[name] = arg
	}

	return kernel(args, kwargs)
}

// materialize resolves reference operands against the local registry and
// unwraps plain values.
func (s *Service) materialize(op command.Operand) (any, error) {
	switch op.Kind {
	case command.KindRef:
		t, ok := s.reg.Lookup(op.Ref.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownObject, op.Ref.ID)
		}
		return t, nil
	case command.KindNumber:
		return op.Number, nil
	case command.KindInt:
		return op.Int, nil
	case command.KindBool:
		return op.Bool, nil
	case command.KindString:
		return op.String, nil
	case command.KindNumberList:
		return append([]float64{}, op.Numbers...), nil
	default:
		return nil, fmt.Errorf("%w: operand kind %q", wire.ErrBadEnvelope, op.Kind)
	}
}

// respond registers tracked results locally and answers with registration
// metadata the caller uses to assemble its pointer; plain numerics answer
// as terminal scalars.
func (s *Service) respond(result any) ([]byte, error) {
	switch v := result.(type) {
	case *tensor.Tensor:
		if v.ID == "" {
			if _, err := s.reg.Register(v, registry.WithPointer(false)); err != nil {
				return wire.EncodeResponse(wire.ErrorResponse(err))
			}
		}
		return wire.EncodeResponse(wire.Response{
			Kind: wire.RemoteObjectResult,
			Registration: &wire.Registration{
				ID:     v.ID,
				Owners: append([]string{}, v.Owners...),
				// The caller's local stand-in is a pointer to this worker.
				IsPointer: true,
			},
			ResultType: tensor.TypeName,
		})
	case float64:
		return wire.EncodeResponse(wire.Response{Kind: wire.ScalarResult, Numeric: v})
	default:
		return wire.EncodeResponse(wire.ErrorResponse(
			fmt.Errorf("%w: %T", ErrBadResult, result)))
	}
}

// HandleObject ingests one pushed payload, registering it under its
// original id as authoritative local data.
func (s *Service) HandleObject(raw []byte) ([]byte, error) {
	payload, t, err := wire.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	_, err = s.reg.Register(t,
		registry.WithID(payload.ID),
		registry.WithOwners(payload.Owners),
		registry.WithPointer(false),
	)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("id", payload.ID).Int("elems", t.Elems()).Msg("stored pushed object")
	return nil, nil
}

// HandleObjectRequest serves the materialized payload for one tracked id.
func (s *Service) HandleObjectRequest(raw []byte) ([]byte, error) {
	req, err := wire.DecodeObjectRequest(raw)
	if err != nil {
		return nil, err
	}
	t, ok := s.reg.Lookup(req.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, req.ID)
	}
	return wire.SerializeObject(t, true)
}
