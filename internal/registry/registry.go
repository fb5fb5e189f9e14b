package registry

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jvmancuso/gridmesh/internal/tensor"
)

var (
	ErrNilObject       = errors.New("registry: nil object")
	ErrWorkerIDMissing = errors.New("registry: worker id required")
)

// Option overrides one registration attribute.
type Option func(*registration)

type registration struct {
	id        string
	owners    []string
	hasOwners bool
	isPointer bool
}

// WithID registers under an existing id instead of assigning a fresh one.
func WithID(id string) Option {
	return func(r *registration) { r.id = strings.TrimSpace(id) }
}

// WithOwners sets the ordered owner set for the handle.
func WithOwners(owners []string) Option {
	return func(r *registration) {
		r.owners = append([]string{}, owners...)
		r.hasOwners = true
	}
}

// WithPointer marks the handle as a zero-sized stand-in for remote data.
func WithPointer(isPointer bool) Option {
	return func(r *registration) { r.isPointer = isPointer }
}

// Registry tracks tensor handles by stable id for one worker.
type Registry struct {
	workerID string

	mu      sync.RWMutex
	objects map[string]*tensor.Tensor
}

// New creates an empty registry bound to one worker id.
func New(workerID string) (*Registry, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, ErrWorkerIDMissing
	}
	return &Registry{
		workerID: workerID,
		objects:  make(map[string]*tensor.Tensor),
	}, nil
}

// WorkerID returns the local worker id the registry is bound to.
func (r *Registry) WorkerID() string {
	return r.workerID
}

// Register stamps registration metadata onto t and tracks it by id.
// Without options it behaves as a fresh local registration: new id,
// owners={self}, non-pointer.
func (r *Registry) Register(t *tensor.Tensor, opts ...Option) (*tensor.Tensor, error) {
	if t == nil {
		return nil, ErrNilObject
	}
	reg := registration{}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.id == "" {
		reg.id = uuid.NewString()
	}
	if !reg.hasOwners {
		reg.owners = []string{r.workerID}
	}

	t.ID = reg.id
	t.Owners = reg.owners
	t.IsPointer = reg.isPointer
	t.SetLocal(r.workerID)

	r.mu.Lock()
	r.objects[reg.id] = t
	r.mu.Unlock()
	return t, nil
}

// Lookup returns the tracked handle for an id.
func (r *Registry) Lookup(id string) (*tensor.Tensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.objects[id]
	return t, ok
}

// Len returns the number of tracked handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
