package nn

import (
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// Xavier creates a tensor initialized with Xavier/Glorot uniform values:
// uniform in [-limit, limit] with limit = sqrt(6 / (fanIn + fanOut)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))

	t := tensor.Rand[float32](shape, backend)
	data := t.Data()
	for i, v := range data {
		data[i] = (v*2 - 1) * limit
	}
	return t
}

// Zeros creates a zero-initialized float32 tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
