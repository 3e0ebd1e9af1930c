package forward_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/backend/cpu"
	"github.com/tangent-ml/tangent/internal/forward"
	"github.com/tangent-ml/tangent/internal/tensor"
)

func TestLevel_EnterExit(t *testing.T) {
	backend := forward.New(cpu.New())

	lvl := backend.EnterLevel()
	assert.Equal(t, 0, lvl.ID())
	assert.False(t, lvl.Closed())

	require.NoError(t, backend.ExitLevel(lvl))
	assert.True(t, lvl.Closed())
}

func TestLevel_ExitIsIdempotent(t *testing.T) {
	backend := forward.New(cpu.New())

	lvl := backend.EnterLevel()
	require.NoError(t, backend.ExitLevel(lvl))
	require.NoError(t, backend.ExitLevel(lvl))
	require.NoError(t, backend.ExitLevel(lvl))
}

func TestLevel_LIFOOrderEnforced(t *testing.T) {
	backend := forward.New(cpu.New())

	outer := backend.EnterLevel()
	inner := backend.EnterLevel()

	// Exiting the outer level while the inner one is active is an error and
	// must not tear anything down.
	err := backend.ExitLevel(outer)
	var nesting *forward.LevelNestingError
	require.ErrorAs(t, err, &nesting)
	assert.Equal(t, outer.ID(), nesting.Exiting)
	assert.Equal(t, inner.ID(), nesting.Innermost)
	assert.False(t, outer.Closed())
	assert.False(t, inner.Closed())

	require.NoError(t, backend.ExitLevel(inner))
	require.NoError(t, backend.ExitLevel(outer))
}

func TestLevel_ExitDetachesTangents(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{1, 2, 3}, tensor.Shape{3})
	tx := fromSlice64(t, backend, []float64{1, 1, 1}, tensor.Shape{3})

	lvl := backend.EnterLevel()
	dual, err := backend.MakeDual(x, tx)
	require.NoError(t, err)
	assert.Equal(t, 1, lvl.NumDuals())

	_, tangent := backend.UnpackDual(dual)
	require.NotNil(t, tangent)

	require.NoError(t, backend.ExitLevel(lvl))
	assert.Equal(t, 0, lvl.NumDuals())

	// The primal survives teardown; the tangent association does not.
	primal, tangent := backend.UnpackDual(dual)
	assert.NotNil(t, primal)
	assert.Nil(t, tangent)
}

func TestLevel_WithLevelTearsDownOnError(t *testing.T) {
	backend := forward.New(cpu.New())

	sentinel := errors.New("boom")
	var captured *forward.Level
	err := backend.WithLevel(func(lvl *forward.Level) error {
		captured = lvl
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, captured.Closed())
}

func TestLevel_WithLevelTearsDownOnPanic(t *testing.T) {
	backend := forward.New(cpu.New())

	var captured *forward.Level
	assert.Panics(t, func() {
		_ = backend.WithLevel(func(lvl *forward.Level) error {
			captured = lvl
			panic("boom")
		})
	})
	assert.True(t, captured.Closed())
}

func TestLevel_NestedScopesAreIndependent(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{5}, tensor.Shape{1})
	tx := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})

	err := backend.WithLevel(func(outer *forward.Level) error {
		dual, err := backend.MakeDual(x, tx)
		require.NoError(t, err)

		err = backend.WithLevel(func(inner *forward.Level) error {
			// The inner level holds no association for the outer dual.
			_, tangent := backend.UnpackDual(dual)
			assert.Nil(t, tangent)
			return nil
		})
		require.NoError(t, err)

		// Back in the outer level the tangent is visible again.
		_, tangent := backend.UnpackDual(dual)
		assert.NotNil(t, tangent)
		return nil
	})
	require.NoError(t, err)
}

func TestLevel_ReuseAfterTeardown(t *testing.T) {
	backend := forward.New(cpu.New())

	x := fromSlice64(t, backend, []float64{2}, tensor.Shape{1})
	tx := fromSlice64(t, backend, []float64{1}, tensor.Shape{1})

	for i := 0; i < 3; i++ {
		err := backend.WithLevel(func(*forward.Level) error {
			dx, err := backend.MakeDual(x, tx)
			require.NoError(t, err)
			_, jvp := backend.UnpackDual(backend.PowScalar(dx, 2))
			require.NotNil(t, jvp)
			assert.InDelta(t, 4.0, jvp.AsFloat64()[0], 1e-12)
			return nil
		})
		require.NoError(t, err)
	}
}
