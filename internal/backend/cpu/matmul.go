package cpu

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions don't match: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	da, db := dense(a), dense(b)

	switch a.DType() {
	case tensor.Float32:
		x, y, out := da.AsFloat32(), db.AsFloat32(), result.AsFloat32()
		for i := 0; i < m; i++ {
			for l := 0; l < k; l++ {
				v := x[i*k+l]
				if v == 0 {
					continue
				}
				for j := 0; j < n; j++ {
					out[i*n+j] += v * y[l*n+j]
				}
			}
		}
	case tensor.Float64:
		x, y, out := da.AsFloat64(), db.AsFloat64(), result.AsFloat64()
		for i := 0; i < m; i++ {
			for l := 0; l < k; l++ {
				v := x[i*k+l]
				if v == 0 {
					continue
				}
				for j := 0; j < n; j++ {
					out[i*n+j] += v * y[l*n+j]
				}
			}
		}
	}

	return result
}
