package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with random values from a normal distribution
// (mean=0, std=1) using the Box-Muller transform.
// Note: uses math/rand (not crypto/rand), appropriate for numeric work.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	for i := 0; i < len(data); i += 2 {
		u1 := rand.Float64() //nolint:gosec // G404: math/rand intentionally, for reproducibility
		u2 := rand.Float64() //nolint:gosec // G404: math/rand intentionally, for reproducibility
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = T(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = T(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return t
}

// Rand creates a tensor with random values uniformly distributed in [0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(rand.Float64()) //nolint:gosec // G404: math/rand intentionally
	}
	return t
}

// RandLike creates a uniform random tensor with the same shape and dtype as
// the given raw tensor.
func RandLike(r *RawTensor, b Backend) *RawTensor {
	out, err := NewRaw(r.Shape(), r.DType(), b.Device())
	if err != nil {
		panic(err)
	}
	switch r.DType() {
	case Float32:
		data := out.AsFloat32()
		for i := range data {
			data[i] = float32(rand.Float64()) //nolint:gosec // G404: math/rand intentionally
		}
	case Float64:
		data := out.AsFloat64()
		for i := range data {
			data[i] = rand.Float64() //nolint:gosec // G404: math/rand intentionally
		}
	}
	return out
}
