package tensor

import (
	"errors"
	"fmt"
	"math"
)

var ErrNotMatrix = errors.New("tensor: matmul requires 2D operands")

// Add returns the elementwise sum of two same-shape tensors.
func Add(a, b *Tensor) (*Tensor, error) {
	return zipWith(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns the elementwise difference of two same-shape tensors.
func Sub(a, b *Tensor) (*Tensor, error) {
	return zipWith(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns the elementwise product of two same-shape tensors.
func Mul(a, b *Tensor) (*Tensor, error) {
	return zipWith(a, b, func(x, y float64) float64 { return x * y })
}

// Div returns the elementwise quotient of two same-shape tensors.
func Div(a, b *Tensor) (*Tensor, error) {
	return zipWith(a, b, func(x, y float64) float64 { return x / y })
}

// MatMul returns the matrix product of two 2D tensors.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("%w: got shapes %v and %v", ErrNotMatrix, a.Shape, b.Shape)
	}
	m, k := a.Shape[0], a.Shape[1]
	k2, n := b.Shape[0], b.Shape[1]
	if k != k2 {
		return nil, fmt.Errorf("%w: inner dimensions %d and %d", ErrShapeMismatch, k, k2)
	}
	out, err := Zeros([]int{m, n})
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var acc float64
			for p := 0; p < k; p++ {
				acc += a.Data[i*k+p] * b.Data[p*n+j]
			}
			out.Data[i*n+j] = acc
		}
	}
	return out, nil
}

// Neg returns the elementwise negation.
func Neg(a *Tensor) (*Tensor, error) {
	return mapWith(a, func(x float64) float64 { return -x })
}

// Abs returns the elementwise absolute value.
func Abs(a *Tensor) (*Tensor, error) {
	return mapWith(a, math.Abs)
}

// Exp returns the elementwise exponential.
func Exp(a *Tensor) (*Tensor, error) {
	return mapWith(a, math.Exp)
}

// Scale multiplies every element by a scalar factor.
func Scale(a *Tensor, factor float64) (*Tensor, error) {
	return mapWith(a, func(x float64) float64 { return x * factor })
}

// Sum reduces a tensor to the scalar sum of its elements.
func Sum(a *Tensor) float64 {
	var acc float64
	for _, v := range a.Data {
		acc += v
	}
	return acc
}

// Mean reduces a tensor to the scalar mean of its elements.
func Mean(a *Tensor) float64 {
	if len(a.Data) == 0 {
		return 0
	}
	return Sum(a) / float64(len(a.Data))
}

func zipWith(a, b *Tensor, f func(x, y float64) float64) (*Tensor, error) {
	if !sameShape(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape, b.Shape)
	}
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] = f(a.Data[i], b.Data[i])
	}
	return out, nil
}

func mapWith(a *Tensor, f func(x float64) float64) (*Tensor, error) {
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] = f(a.Data[i])
	}
	return out, nil
}
