package command

import (
	"errors"
	"fmt"

	"github.com/jvmancuso/gridmesh/internal/tensor"
)

var ErrUnsupportedOperand = errors.New("command: unsupported operand type")

// OperandKind discriminates the serialized form of one operand.
type OperandKind string

const (
	KindNumber     OperandKind = "number"
	KindInt        OperandKind = "int"
	KindBool       OperandKind = "bool"
	KindString     OperandKind = "string"
	KindNumberList OperandKind = "number_list"
	KindRef        OperandKind = "ref"
)

// Ref is a reference-only descriptor for a tracked instance: id plus
// ownership, never payload.
type Ref struct {
	ID     string   `json:"id"`
	Owners []string `json:"owners"`
}

// Operand is one command argument: a plain value or a tensor reference.
type Operand struct {
	Kind    OperandKind `json:"kind"`
	Number  float64     `json:"number,omitempty"`
	Int     int64       `json:"int,omitempty"`
	Bool    bool        `json:"bool,omitempty"`
	String  string      `json:"string,omitempty"`
	Numbers []float64   `json:"numbers,omitempty"`
	Ref     *Ref        `json:"ref,omitempty"`
}

// FromValue converts one runtime argument into its wire operand.
func FromValue(v any) (Operand, error) {
	switch x := v.(type) {
	case *tensor.Tensor:
		return Operand{Kind: KindRef, Ref: &Ref{
			ID:     x.ID,
			Owners: append([]string{}, x.Owners...),
		}}, nil
	case float64:
		return Operand{Kind: KindNumber, Number: x}, nil
	case float32:
		return Operand{Kind: KindNumber, Number: float64(x)}, nil
	case int:
		return Operand{Kind: KindInt, Int: int64(x)}, nil
	case int64:
		return Operand{Kind: KindInt, Int: x}, nil
	case bool:
		return Operand{Kind: KindBool, Bool: x}, nil
	case string:
		return Operand{Kind: KindString, String: x}, nil
	case []float64:
		return Operand{Kind: KindNumberList, Numbers: append([]float64{}, x...)}, nil
	default:
		return Operand{}, fmt.Errorf("%w: %T", ErrUnsupportedOperand, v)
	}
}

// TypeTag returns the runtime type tag recorded alongside one argument.
func TypeTag(v any) (string, error) {
	switch v.(type) {
	case *tensor.Tensor:
		return tensor.TypeName, nil
	case float64, float32:
		return "float64", nil
	case int, int64:
		return "int64", nil
	case bool:
		return "bool", nil
	case string:
		return "string", nil
	case []float64:
		return "[]float64", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedOperand, v)
	}
}
