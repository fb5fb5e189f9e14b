package mesh

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jvmancuso/gridmesh/internal/dispatch"
	"github.com/jvmancuso/gridmesh/internal/hook"
	"github.com/jvmancuso/gridmesh/internal/logging"
	"github.com/jvmancuso/gridmesh/internal/registry"
	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/transport"
)

var (
	ErrUnknownOperation = errors.New("mesh: operation not hooked")
	ErrNilTensor        = errors.New("mesh: nil tensor")
	ErrMessengerNil     = errors.New("mesh: messenger required")
)

// Config carries engine construction inputs.
type Config struct {
	WorkerID  string
	Messenger transport.Messenger

	// Catalogs defaults to the built-in tensor catalog when empty.
	Catalogs []hook.Catalog
}

// Engine is one node's interception layer: intercepted operations compile
// into commands, resolve their location, and execute locally or against
// the owning worker. The adapter table is built once here and never
// mutates afterwards; construction must not race dispatch.
type Engine struct {
	reg        *registry.Registry
	table      *hook.Table
	messenger  transport.Messenger
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
}

// New builds the engine for one worker. A catalog naming an untracked
// type fails construction outright: partial installation is unsupported.
func New(cfg Config) (*Engine, error) {
	if cfg.Messenger == nil {
		return nil, ErrMessengerNil
	}
	reg, err := registry.New(cfg.WorkerID)
	if err != nil {
		return nil, err
	}

	catalogs := cfg.Catalogs
	if len(catalogs) == 0 {
		catalogs = []hook.Catalog{hook.DefaultCatalog()}
	}
	tracked := map[string]bool{tensor.TypeName: true}
	table, err := hook.Build(catalogs, tracked)
	if err != nil {
		return nil, fmt.Errorf("building adapter table: %w", err)
	}

	log := logging.Logger("mesh").With().Str("worker", cfg.WorkerID).Logger()
	return &Engine{
		reg:        reg,
		table:      table,
		messenger:  cfg.Messenger,
		dispatcher: dispatch.New(reg, cfg.Messenger, log),
		log:        log,
	}, nil
}

// Registry exposes the engine's object registry.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Table exposes the built adapter table, used by the worker service to
// execute received commands through the stashed originals.
func (e *Engine) Table() *hook.Table {
	return e.table
}

// WorkerID returns the local worker id.
func (e *Engine) WorkerID() string {
	return e.reg.WorkerID()
}

// NewTensor is the hooked constructor: every fresh tracked instance
// self-registers as a local non-pointer with a new id.
func (e *Engine) NewTensor(shape []int, data []float64) (*tensor.Tensor, error) {
	t, err := tensor.New(shape, data)
	if err != nil {
		return nil, err
	}
	return e.reg.Register(t, registry.WithPointer(false))
}

// Call routes one hooked free function through the pipeline.
func (e *Engine) Call(op string, args ...any) (any, error) {
	facade, ok := e.table.Function(op)
	if !ok {
		return nil, fmt.Errorf("%w: function %q", ErrUnknownOperation, op)
	}
	return e.dispatcher.Dispatch(facade(args, nil), false)
}

// CallMethod routes one hooked instance method through the pipeline with
// the receiver as the self operand.
func (e *Engine) CallMethod(self *tensor.Tensor, op string, args ...any) (any, error) {
	if self == nil {
		return nil, ErrNilTensor
	}
	facade, ok := e.table.Method(op)
	if !ok {
		return nil, fmt.Errorf("%w: method %q", ErrUnknownOperation, op)
	}
	full := append([]any{self}, args...)
	return e.dispatcher.Dispatch(facade(full, nil), true)
}

// Render formats a tensor: default formatting when the local worker is
// among current owners, an owner-location summary otherwise.
func (e *Engine) Render(t *tensor.Tensor) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
