package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/backend/cpu"
	"github.com/tangent-ml/tangent/internal/tensor"
)

func TestRawTensor_New(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	assert.True(t, raw.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []int{3, 1}, raw.Strides())
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.True(t, raw.IsContiguous())

	// Zero-initialized.
	for _, v := range raw.AsFloat32() {
		assert.Zero(t, v)
	}
}

func TestRawTensor_NewRejectsInvalidShape(t *testing.T) {
	_, err := tensor.NewRaw(tensor.Shape{2, 0}, tensor.Float32, tensor.CPU)
	assert.Error(t, err)
}

func TestRawTensor_CloneSharesBuffer(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{4}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)

	view := raw.Clone()
	raw.AsFloat64()[2] = 7

	assert.InDelta(t, 7.0, view.AsFloat64()[2], 0)
}

func TestRawTensor_TransposedView(t *testing.T) {
	tt, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, cpu.New())
	require.NoError(t, err)
	raw := tt.Raw()

	view := raw.T()
	assert.True(t, view.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []int{1, 3}, view.Strides())
	assert.False(t, view.IsContiguous())
	assert.False(t, view.SameLayout(raw))

	// Shared buffer, no copy.
	raw.AsFloat64()[0] = 100
	assert.InDelta(t, 100.0, view.AsFloat64()[0], 0)
}

func TestRawTensor_TPanicsOnNon2D(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{4}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	assert.Panics(t, func() { raw.T() })
}

func TestRawTensor_ContiguousMaterializesView(t *testing.T) {
	tt, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, cpu.New())
	require.NoError(t, err)

	dense := tt.Raw().T().Contiguous()
	assert.True(t, dense.IsContiguous())
	assert.True(t, dense.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, dense.AsFloat64())
}

func TestRawTensor_ContiguousCopiesDense(t *testing.T) {
	tt, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, cpu.New())
	require.NoError(t, err)
	raw := tt.Raw()

	copied := raw.Contiguous()
	assert.NotSame(t, raw, copied)

	// Independent memory.
	raw.AsFloat32()[0] = 99
	assert.InDelta(t, float32(1), copied.AsFloat32()[0], 0)
}

func TestRawTensor_SameLayout(t *testing.T) {
	a, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	assert.True(t, a.SameLayout(b))
	assert.False(t, a.SameLayout(b.T()))
}

func TestRawTensor_AsFloatDTypeGuard(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	assert.Panics(t, func() { raw.AsFloat64() })
	assert.NotPanics(t, func() { raw.AsFloat32() })
}
