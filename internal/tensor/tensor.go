package tensor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrShapeMismatch = errors.New("tensor: shape mismatch")
	ErrBadShape      = errors.New("tensor: invalid shape")
	ErrDataMismatch  = errors.New("tensor: data length does not match shape")
)

// TypeName is the tracked-type tag carried in wire envelopes.
const TypeName = "tensor"

// Tensor is a dense float64 tensor plus its registration metadata.
// A pointer tensor holds no data; authoritative storage lives at Owners.
type Tensor struct {
	ID        string
	Owners    []string
	IsPointer bool

	Shape []int
	Data  []float64

	// local is the worker that registered this handle, stamped by the registry.
	local string
}

// New builds an unregistered tensor from shape and backing data.
func New(shape []int, data []float64) (*Tensor, error) {
	n, err := elems(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: shape %v wants %d values, got %d", ErrDataMismatch, shape, n, len(data))
	}
	return &Tensor{
		Shape: append([]int{}, shape...),
		Data:  append([]float64{}, data...),
	}, nil
}

// Zeros builds an unregistered zero-filled tensor.
func Zeros(shape []int) (*Tensor, error) {
	n, err := elems(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{Shape: append([]int{}, shape...), Data: make([]float64, n)}, nil
}

// Full builds an unregistered tensor filled with one value.
func Full(shape []int, value float64) (*Tensor, error) {
	t, err := Zeros(shape)
	if err != nil {
		return nil, err
	}
	for i := range t.Data {
		t.Data[i] = value
	}
	return t, nil
}

// Ones builds an unregistered one-filled tensor.
func Ones(shape []int) (*Tensor, error) {
	return Full(shape, 1)
}

// Placeholder builds the zero-sized stand-in used for pointer tensors.
func Placeholder() *Tensor {
	return &Tensor{Shape: []int{0}, Data: nil}
}

// Elems returns the number of stored values.
func (t *Tensor) Elems() int {
	return len(t.Data)
}

// SetLocal stamps the registering worker id. Registry use only.
func (t *Tensor) SetLocal(workerID string) {
	t.local = workerID
}

// Local returns the worker id that registered this handle.
func (t *Tensor) Local() string {
	return t.local
}

// OwnedLocally reports whether the registering worker is among current owners.
func (t *Tensor) OwnedLocally() bool {
	if t.local == "" {
		return false
	}
	for _, owner := range t.Owners {
		if owner == t.local {
			return true
		}
	}
	return false
}

// BecomePlaceholder drops local storage in place, keeping metadata.
func (t *Tensor) BecomePlaceholder() {
	t.Shape = []int{0}
	t.Data = nil
}

// Adopt overwrites local storage in place from another tensor's payload.
func (t *Tensor) Adopt(src *Tensor) {
	t.Shape = append([]int{}, src.Shape...)
	t.Data = append([]float64{}, src.Data...)
}

// Clone returns a copy of shape and data without registration metadata.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...),
	}
}

// Equal compares shape and values only, ignoring registration metadata.
func (t *Tensor) Equal(other *Tensor) bool {
	if other == nil || len(t.Shape) != len(other.Shape) || len(t.Data) != len(other.Data) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	for i := range t.Data {
		if t.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// String renders local data, or an owner-location summary for remote handles.
func (t *Tensor) String() string {
	if t.IsPointer && !t.OwnedLocally() {
		return fmt.Sprintf("[gridmesh.Tensor - locations:%v]", t.Owners)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor(shape=%v, data=%v)", t.Shape, t.Data)
	return b.String()
}

func elems(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrBadShape)
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrBadShape, d)
		}
		n *= d
	}
	return n, nil
}

func sameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}
