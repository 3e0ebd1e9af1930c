package cpu

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// binaryOp applies an element-wise binary kernel with broadcasting.
func (cpu *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	da, db := dense(a), dense(b)

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		// Fast path: same shape, flat loop.
		switch a.DType() {
		case tensor.Float32:
			x, y, out := da.AsFloat32(), db.AsFloat32(), result.AsFloat32()
			for i := range out {
				out[i] = f32(x[i], y[i])
			}
		case tensor.Float64:
			x, y, out := da.AsFloat64(), db.AsFloat64(), result.AsFloat64()
			for i := range out {
				out[i] = f64(x[i], y[i])
			}
		}
		return result
	}

	// Slow path: broadcast walk over the output index space.
	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	n := outShape.NumElements()
	idx := make([]int, len(outShape))

	switch a.DType() {
	case tensor.Float32:
		x, y, out := da.AsFloat32(), db.AsFloat32(), result.AsFloat32()
		for i := 0; i < n; i++ {
			out[i] = f32(x[offsetOf(idx, aStrides)], y[offsetOf(idx, bStrides)])
			advanceIndex(idx, outShape)
		}
	case tensor.Float64:
		x, y, out := da.AsFloat64(), db.AsFloat64(), result.AsFloat64()
		for i := 0; i < n; i++ {
			out[i] = f64(x[offsetOf(idx, aStrides)], y[offsetOf(idx, bStrides)])
			advanceIndex(idx, outShape)
		}
	}

	return result
}

// unaryOp applies an element-wise unary kernel.
func (cpu *CPUBackend) unaryOp(
	name string,
	x *tensor.RawTensor,
	f32 func(v float32) float32,
	f64 func(v float64) float64,
) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	src := dense(x)
	switch x.DType() {
	case tensor.Float32:
		in, out := src.AsFloat32(), result.AsFloat32()
		for i, v := range in {
			out[i] = f32(v)
		}
	case tensor.Float64:
		in, out := src.AsFloat64(), result.AsFloat64()
		for i, v := range in {
			out[i] = f64(v)
		}
	}

	return result
}

// broadcastStrides computes element strides of shape viewed as outShape:
// size-1 (or missing) dimensions get stride 0 so the single element repeats.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := shape.ComputeStrides()
	out := make([]int, len(outShape))
	pad := len(outShape) - len(shape)
	for d := range outShape {
		if d < pad || shape[d-pad] == 1 {
			out[d] = 0
		} else {
			out[d] = strides[d-pad]
		}
	}
	return out
}

// offsetOf maps a multi-dimensional index to a flat offset using strides.
func offsetOf(idx, strides []int) int {
	off := 0
	for d, ix := range idx {
		off += ix * strides[d]
	}
	return off
}

// advanceIndex increments a multi-dimensional index in row-major order.
func advanceIndex(idx []int, shape tensor.Shape) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}
