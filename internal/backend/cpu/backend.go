// Package cpu implements the CPU compute backend with pure Go kernels.
package cpu

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// Reshape returns a tensor with the same data but a different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	src := dense(t)
	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(result.Data()[:result.ByteSize()], src.Data()[:src.ByteSize()])
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	src := dense(t)

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	srcStrides := shape.ComputeStrides()
	n := t.NumElements()
	idx := make([]int, ndim)

	switch t.DType() {
	case tensor.Float32:
		in := src.AsFloat32()
		out := result.AsFloat32()
		for i := 0; i < n; i++ {
			srcOff := 0
			for d, ix := range idx {
				srcOff += ix * srcStrides[axes[d]]
			}
			out[i] = in[srcOff]
			advanceIndex(idx, newShape)
		}
	case tensor.Float64:
		in := src.AsFloat64()
		out := result.AsFloat64()
		for i := 0; i < n; i++ {
			srcOff := 0
			for d, ix := range idx {
				srcOff += ix * srcStrides[axes[d]]
			}
			out[i] = in[srcOff]
			advanceIndex(idx, newShape)
		}
	}

	return result
}

// Sum reduces the tensor to its total sum. The result has shape {1}.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	src := dense(x)
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var acc float32
		for _, v := range src.AsFloat32() {
			acc += v
		}
		result.AsFloat32()[0] = acc
	case tensor.Float64:
		var acc float64
		for _, v := range src.AsFloat64() {
			acc += v
		}
		result.AsFloat64()[0] = acc
	}

	return result
}

// dense returns t itself when contiguous, or a dense row-major copy otherwise.
// Kernels operate on flat slices and need dense input.
func dense(t *tensor.RawTensor) *tensor.RawTensor {
	if t.IsContiguous() {
		return t
	}
	return t.Contiguous()
}
