package cpu

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("exp", x,
		func(v float32) float32 { return float32(math.Exp(float64(v))) },
		math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
// Panics on non-positive values.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("log", x,
		func(v float32) float32 {
			if v <= 0 {
				panic(fmt.Sprintf("log: non-positive value: %f", v))
			}
			return float32(math.Log(float64(v)))
		},
		func(v float64) float64 {
			if v <= 0 {
				panic(fmt.Sprintf("log: non-positive value: %f", v))
			}
			return math.Log(v)
		})
}

// Sqrt computes element-wise square root: sqrt(x).
// Panics on negative values.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("sqrt", x,
		func(v float32) float32 {
			if v < 0 {
				panic(fmt.Sprintf("sqrt: negative value: %f", v))
			}
			return float32(math.Sqrt(float64(v)))
		},
		func(v float64) float64 {
			if v < 0 {
				panic(fmt.Sprintf("sqrt: negative value: %f", v))
			}
			return math.Sqrt(v)
		})
}

// Sin computes element-wise sine.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("sin", x,
		func(v float32) float32 { return float32(math.Sin(float64(v))) },
		math.Sin)
}

// Cos computes element-wise cosine.
func (cpu *CPUBackend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("cos", x,
		func(v float32) float32 { return float32(math.Cos(float64(v))) },
		math.Cos)
}

// Tanh computes element-wise hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("tanh", x,
		func(v float32) float32 { return float32(math.Tanh(float64(v))) },
		math.Tanh)
}

// PowScalar computes element-wise power: x^exponent.
func (cpu *CPUBackend) PowScalar(x *tensor.RawTensor, exponent float64) *tensor.RawTensor {
	return cpu.unaryOp("pow", x,
		func(v float32) float32 { return float32(math.Pow(float64(v), exponent)) },
		func(v float64) float64 { return math.Pow(v, exponent) })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s32 := float32(scalar)
	return cpu.unaryOp("add_scalar", x,
		func(v float32) float32 { return v + s32 },
		func(v float64) float64 { return v + scalar })
}

// SubScalar subtracts a scalar from every element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s32 := float32(scalar)
	return cpu.unaryOp("sub_scalar", x,
		func(v float32) float32 { return v - s32 },
		func(v float64) float64 { return v - scalar })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s32 := float32(scalar)
	return cpu.unaryOp("mul_scalar", x,
		func(v float32) float32 { return v * s32 },
		func(v float64) float64 { return v * scalar })
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s32 := float32(scalar)
	return cpu.unaryOp("div_scalar", x,
		func(v float32) float32 { return v / s32 },
		func(v float64) float64 { return v / scalar })
}
