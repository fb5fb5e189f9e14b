package hook

import (
	"errors"
	"fmt"

	"github.com/jvmancuso/gridmesh/internal/command"
	"github.com/jvmancuso/gridmesh/internal/tensor"
)

var (
	ErrBadArity   = errors.New("hook: wrong argument count")
	ErrBadArgType = errors.New("hook: wrong argument type")
)

// OpSpec is one allow-listed operation signature, fixed at build time.
type OpSpec struct {
	Name   string
	Kernel command.Kernel
}

// Catalog is the static allow-list of operation signatures for one
// tracked type.
type Catalog struct {
	Type      string
	Functions []OpSpec
	Methods   []OpSpec
}

func (c Catalog) function(name string) (OpSpec, bool) {
	return findSpec(c.Functions, name)
}

func (c Catalog) method(name string) (OpSpec, bool) {
	return findSpec(c.Methods, name)
}

func findSpec(specs []OpSpec, name string) (OpSpec, bool) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return OpSpec{}, false
}

// DefaultCatalog returns the tensor operation allow-list. Methods reuse the
// function kernels with the receiver as first positional argument.
func DefaultCatalog() Catalog {
	binary := func(name string, f func(a, b *tensor.Tensor) (*tensor.Tensor, error)) OpSpec {
		return OpSpec{Name: name, Kernel: binaryKernel(name, f)}
	}
	unary := func(name string, f func(a *tensor.Tensor) (*tensor.Tensor, error)) OpSpec {
		return OpSpec{Name: name, Kernel: unaryKernel(name, f)}
	}
	reduce := func(name string, f func(a *tensor.Tensor) float64) OpSpec {
		return OpSpec{Name: name, Kernel: reduceKernel(name, f)}
	}

	ops := []OpSpec{
		binary("add", tensor.Add),
		binary("sub", tensor.Sub),
		binary("mul", tensor.Mul),
		binary("div", tensor.Div),
		binary("matmul", tensor.MatMul),
		unary("neg", tensor.Neg),
		unary("abs", tensor.Abs),
		unary("exp", tensor.Exp),
		{Name: "scale", Kernel: scaleKernel()},
		reduce("sum", tensor.Sum),
		reduce("mean", tensor.Mean),
	}

	functions := append([]OpSpec{}, ops...)
	functions = append(functions,
		OpSpec{Name: "zeros", Kernel: shapeKernel("zeros", tensor.Zeros)},
		OpSpec{Name: "ones", Kernel: shapeKernel("ones", tensor.Ones)},
		OpSpec{Name: "full", Kernel: fullKernel()},
	)

	return Catalog{
		Type:      tensor.TypeName,
		Functions: functions,
		Methods:   append([]OpSpec{}, ops...),
	}
}

func binaryKernel(name string, f func(a, b *tensor.Tensor) (*tensor.Tensor, error)) command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: %s wants 2 args, got %d", ErrBadArity, name, len(args))
		}
		a, err := tensorArg(name, args[0])
		if err != nil {
			return nil, err
		}
		b, err := tensorArg(name, args[1])
		if err != nil {
			return nil, err
		}
		return f(a, b)
	}
}

func unaryKernel(name string, f func(a *tensor.Tensor) (*tensor.Tensor, error)) command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 arg, got %d", ErrBadArity, name, len(args))
		}
		a, err := tensorArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return f(a)
	}
}

func reduceKernel(name string, f func(a *tensor.Tensor) float64) command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 arg, got %d", ErrBadArity, name, len(args))
		}
		a, err := tensorArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return f(a), nil
	}
}

func scaleKernel() command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: scale wants 2 args, got %d", ErrBadArity, len(args))
		}
		a, err := tensorArg("scale", args[0])
		if err != nil {
			return nil, err
		}
		factor, err := numberArg("scale", args[1])
		if err != nil {
			return nil, err
		}
		return tensor.Scale(a, factor)
	}
}

func shapeKernel(name string, f func(shape []int) (*tensor.Tensor, error)) command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s wants 1 arg, got %d", ErrBadArity, name, len(args))
		}
		shape, err := shapeArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return f(shape)
	}
}

func fullKernel() command.Kernel {
	return func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: full wants 2 args, got %d", ErrBadArity, len(args))
		}
		shape, err := shapeArg("full", args[0])
		if err != nil {
			return nil, err
		}
		value, err := numberArg("full", args[1])
		if err != nil {
			return nil, err
		}
		return tensor.Full(shape, value)
	}
}

func tensorArg(op string, v any) (*tensor.Tensor, error) {
	t, ok := v.(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("%w: %s wants tensor, got %T", ErrBadArgType, op, v)
	}
	return t, nil
}

func numberArg(op string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: %s wants number, got %T", ErrBadArgType, op, v)
	}
}

func shapeArg(op string, v any) ([]int, error) {
	switch x := v.(type) {
	case []float64:
		shape := make([]int, len(x))
		for i, d := range x {
			shape[i] = int(d)
		}
		return shape, nil
	case []int:
		return append([]int{}, x...), nil
	default:
		return nil, fmt.Errorf("%w: %s wants shape, got %T", ErrBadArgType, op, v)
	}
}
