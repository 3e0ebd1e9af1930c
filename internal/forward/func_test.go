package forward_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/backend/cpu"
	"github.com/tangent-ml/tangent/internal/forward"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// expFn mirrors the canonical custom-function pattern: the forward rule
// saves its own result so the tangent rule can reuse it.
type expFn struct{}

func (expFn) Name() string { return "exp" }

func (expFn) Forward(ctx *forward.Context, b tensor.Backend, inputs ...*tensor.RawTensor) *tensor.RawTensor {
	result := b.Exp(inputs[0])
	ctx.Save(result)
	return result
}

func (expFn) JVP(ctx *forward.Context, b tensor.Backend, tangents ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Mul(tangents[0], ctx.Saved()[0]), nil
}

// mulFn is a two-input custom function: z = x·y with
// dz = dx·y + x·dy. Nil tangent entries stand for zero tangents.
type mulFn struct{}

func (mulFn) Name() string { return "mul" }

func (mulFn) Forward(ctx *forward.Context, b tensor.Backend, inputs ...*tensor.RawTensor) *tensor.RawTensor {
	ctx.Save(inputs[0], inputs[1])
	return b.Mul(inputs[0], inputs[1])
}

func (mulFn) JVP(ctx *forward.Context, b tensor.Backend, tangents ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	x, y := ctx.Saved()[0], ctx.Saved()[1]
	var out *tensor.RawTensor
	if tangents[0] != nil {
		out = b.Mul(tangents[0], y)
	}
	if tangents[1] != nil {
		term := b.Mul(x, tangents[1])
		if out == nil {
			out = term
		} else {
			out = b.Add(out, term)
		}
	}
	return out, nil
}

// floorFn declares no tangent rule.
type floorFn struct{}

func (floorFn) Name() string { return "floor" }

func (floorFn) Forward(ctx *forward.Context, b tensor.Backend, inputs ...*tensor.RawTensor) *tensor.RawTensor {
	return inputs[0].Contiguous()
}

func (floorFn) JVP(ctx *forward.Context, b tensor.Backend, tangents ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	return nil, &forward.UnsupportedOpError{Op: "floor"}
}

func TestApply_CustomExp(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{0.5, 1.0}, tensor.Shape{2})
	tx := fromSlice64(t, backend, []float64{1, 2}, tensor.Shape{2})

	err := backend.WithLevel(func(*forward.Level) error {
		dx, err := backend.MakeDual(x, tx)
		require.NoError(t, err)

		out, err := backend.Apply(expFn{}, dx)
		require.NoError(t, err)

		primal, jvp := backend.UnpackDual(out)
		require.NotNil(t, jvp)
		assert.InDelta(t, math.Exp(0.5), primal.AsFloat64()[0], 1e-12)
		assert.InDelta(t, math.Exp(0.5)*1, jvp.AsFloat64()[0], 1e-12)
		assert.InDelta(t, math.Exp(1.0)*2, jvp.AsFloat64()[1], 1e-12)
		return nil
	})
	require.NoError(t, err)
}

func TestApply_MixedDualAndPlainInputs(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{3}, tensor.Shape{1})
	y := fromSlice64(t, backend, []float64{4}, tensor.Shape{1})
	tx := fromSlice64(t, backend, []float64{1.5}, tensor.Shape{1})

	err := backend.WithLevel(func(*forward.Level) error {
		dx, err := backend.MakeDual(x, tx)
		require.NoError(t, err)

		// y carries no tangent: dz = tx·y = 6.
		out, err := backend.Apply(mulFn{}, dx, y)
		require.NoError(t, err)

		primal, jvp := backend.UnpackDual(out)
		assert.InDelta(t, 12.0, primal.AsFloat64()[0], 1e-12)
		require.NotNil(t, jvp)
		assert.InDelta(t, 6.0, jvp.AsFloat64()[0], 1e-12)
		return nil
	})
	require.NoError(t, err)
}

func TestApply_UnsupportedOp(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})
	tx := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})

	err := backend.WithLevel(func(*forward.Level) error {
		dx, err := backend.MakeDual(x, tx)
		require.NoError(t, err)

		_, err = backend.Apply(floorFn{}, dx)
		var unsupported *forward.UnsupportedOpError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "floor", unsupported.Op)
		return nil
	})
	require.NoError(t, err)
}

func TestApply_UnsupportedOpWithoutTangentsSucceeds(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})

	err := backend.WithLevel(func(*forward.Level) error {
		// No input carries a tangent, so the missing JVP rule is never hit.
		out, err := backend.Apply(floorFn{}, x)
		require.NoError(t, err)

		_, jvp := backend.UnpackDual(out)
		assert.Nil(t, jvp)
		return nil
	})
	require.NoError(t, err)
}

func TestApply_OutsideLevel(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{2}, tensor.Shape{1})

	out, err := backend.Apply(expFn{}, x)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(2), out.AsFloat64()[0], 1e-12)
}

func TestContext_FreeIsIdempotent(t *testing.T) {
	backend := forward.New(cpu.New())
	x := fromSlice64(t, backend, []float64{1, 2}, tensor.Shape{2})

	ctx := &forward.Context{}
	ctx.Save(x)
	require.Len(t, ctx.Saved(), 1)

	ctx.Free()
	assert.Empty(t, ctx.Saved())
	ctx.Free()
}

// retainFn keeps its saved state alive past the JVP call.
type retainFn struct {
	kept **tensor.RawTensor
}

func (retainFn) Name() string { return "retain" }

func (f retainFn) Forward(ctx *forward.Context, b tensor.Backend, inputs ...*tensor.RawTensor) *tensor.RawTensor {
	result := b.MulScalar(inputs[0], 2)
	ctx.Save(result)
	return result
}

func (f retainFn) JVP(ctx *forward.Context, b tensor.Backend, tangents ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	ctx.Retain()
	*f.kept = ctx.Saved()[0]
	return b.MulScalar(tangents[0], 2), nil
}

func TestApply_RetainedContextSurvives(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{3}, tensor.Shape{1})
	tx := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})

	var kept *tensor.RawTensor
	err := backend.WithLevel(func(*forward.Level) error {
		dx, err := backend.MakeDual(x, tx)
		require.NoError(t, err)

		_, err = backend.Apply(retainFn{kept: &kept}, dx)
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)

	require.NotNil(t, kept)
	assert.InDelta(t, 6.0, kept.AsFloat64()[0], 1e-12)
}
