package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Every operation in this interface is differentiable, so a decorating
// backend (see internal/forward) can propagate tangents through all of them.
//
// Implementations:
//   - CPU: pure Go kernels (internal/backend/cpu)
//   - Forward: dual-number decorator over any other backend (internal/forward)
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations (element-wise with scalar)
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	SubScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	DivScalar(x *RawTensor, scalar float64) *RawTensor
	PowScalar(x *RawTensor, exponent float64) *RawTensor // x^exponent

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor  // exponential
	Log(x *RawTensor) *RawTensor  // natural logarithm
	Sqrt(x *RawTensor) *RawTensor // square root
	Sin(x *RawTensor) *RawTensor  // sine
	Cos(x *RawTensor) *RawTensor  // cosine
	Tanh(x *RawTensor) *RawTensor // hyperbolic tangent

	// Reduction operations
	Sum(x *RawTensor) *RawTensor // total sum (scalar result, shape {1})

	// Metadata
	Name() string
	Device() Device
}
