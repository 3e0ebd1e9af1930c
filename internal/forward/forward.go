// Package forward implements forward-mode automatic differentiation using
// dual numbers.
//
// ForwardBackend wraps any Backend implementation (CPU, etc.) and propagates
// tangents eagerly alongside the forward pass. Unlike reverse-mode AD there
// is no tape and no graph: when an operation's input carries a tangent in
// the active differentiation level, the operation's directional derivative
// is computed immediately and associated with the output.
//
// Architecture:
//   - Decorator pattern: ForwardBackend[B] wraps any Backend implementation
//   - Level: dynamically scoped region bounding tangent lifetimes
//   - Dual value: a primal tensor plus a tangent associated inside a Level
//   - JVP: the tangent of an output is the Jacobian-vector product for the
//     chosen input direction
//
// Usage:
//
//	backend := forward.New(cpu.New())
//
//	err := backend.WithLevel(func(lvl *forward.Level) error {
//	    dual, err := backend.MakeDual(primal, tangent)
//	    if err != nil {
//	        return err
//	    }
//	    out := backend.Mul(dual, dual) // primal² with tangent 2·primal·tangent
//	    _, jvp := backend.UnpackDual(out)
//	    _ = jvp
//	    return nil
//	})
package forward

import (
	"github.com/tangent-ml/tangent/internal/tensor"
)

// ForwardBackend wraps a Backend and adds forward-mode differentiation.
// It implements the tensor.Backend interface; tangent propagation only
// happens while a differentiation level is active.
//
// A ForwardBackend is single-threaded: concurrent evaluations must each use
// their own instance so no tangent state is shared across goroutines.
type ForwardBackend[B tensor.Backend] struct {
	inner  B        // Wrapped backend (CPU, etc.)
	levels []*Level // Stack of active differentiation levels
	nextID int
}

// New creates a new ForwardBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *ForwardBackend[B] {
	return &ForwardBackend[B]{
		inner: backend,
	}
}

// Inner returns the wrapped backend for direct access.
func (b *ForwardBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *ForwardBackend[B]) Name() string {
	return "Forward(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *ForwardBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition: d(x+y) = dx + dy.
func (b *ForwardBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Add(x, y)
	b.propagate2(x, y, z,
		func(tx *tensor.RawTensor) *tensor.RawTensor { return tx },
		func(ty *tensor.RawTensor) *tensor.RawTensor { return ty })
	return z
}

// Sub performs element-wise subtraction: d(x-y) = dx - dy.
func (b *ForwardBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Sub(x, y)
	b.propagate2(x, y, z,
		func(tx *tensor.RawTensor) *tensor.RawTensor { return tx },
		func(ty *tensor.RawTensor) *tensor.RawTensor { return b.inner.MulScalar(ty, -1) })
	return z
}

// Mul performs element-wise multiplication: d(x·y) = dx·y + x·dy.
func (b *ForwardBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Mul(x, y)
	b.propagate2(x, y, z,
		func(tx *tensor.RawTensor) *tensor.RawTensor { return b.inner.Mul(tx, y) },
		func(ty *tensor.RawTensor) *tensor.RawTensor { return b.inner.Mul(x, ty) })
	return z
}

// Div performs element-wise division: d(x/y) = dx/y - (x/y)·dy/y.
func (b *ForwardBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Div(x, y)
	b.propagate2(x, y, z,
		func(tx *tensor.RawTensor) *tensor.RawTensor { return b.inner.Div(tx, y) },
		func(ty *tensor.RawTensor) *tensor.RawTensor {
			return b.inner.MulScalar(b.inner.Div(b.inner.Mul(z, ty), y), -1)
		})
	return z
}

// MatMul performs matrix multiplication: d(X@Y) = dX@Y + X@dY.
func (b *ForwardBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.MatMul(x, y)
	b.propagate2(x, y, z,
		func(tx *tensor.RawTensor) *tensor.RawTensor { return b.inner.MatMul(tx, y) },
		func(ty *tensor.RawTensor) *tensor.RawTensor { return b.inner.MatMul(x, ty) })
	return z
}

// Reshape reshapes a tensor; the tangent is reshaped the same way.
func (b *ForwardBackend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	z := b.inner.Reshape(x, newShape)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Reshape(tx, newShape)
	})
	return z
}

// Transpose permutes dimensions; the tangent is permuted identically.
func (b *ForwardBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	z := b.inner.Transpose(x, axes...)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Transpose(tx, axes...)
	})
	return z
}

// AddScalar adds a scalar: the tangent passes through unchanged.
func (b *ForwardBackend[B]) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	z := b.inner.AddScalar(x, scalar)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor { return tx })
	return z
}

// SubScalar subtracts a scalar: the tangent passes through unchanged.
func (b *ForwardBackend[B]) SubScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	z := b.inner.SubScalar(x, scalar)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor { return tx })
	return z
}

// MulScalar multiplies by a scalar: d(s·x) = s·dx.
func (b *ForwardBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	z := b.inner.MulScalar(x, scalar)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.MulScalar(tx, scalar)
	})
	return z
}

// DivScalar divides by a scalar: d(x/s) = dx/s.
func (b *ForwardBackend[B]) DivScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	z := b.inner.DivScalar(x, scalar)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.DivScalar(tx, scalar)
	})
	return z
}

// PowScalar raises to a power: d(x^c) = c·x^(c-1)·dx.
func (b *ForwardBackend[B]) PowScalar(x *tensor.RawTensor, exponent float64) *tensor.RawTensor {
	z := b.inner.PowScalar(x, exponent)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		if exponent == 0 {
			return zerosLike(z)
		}
		return b.inner.MulScalar(b.inner.Mul(b.inner.PowScalar(x, exponent-1), tx), exponent)
	})
	return z
}

// Exp computes the exponential: d(exp(x)) = exp(x)·dx.
func (b *ForwardBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Exp(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Mul(z, tx)
	})
	return z
}

// Log computes the natural logarithm: d(log(x)) = dx/x.
func (b *ForwardBackend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Log(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Div(tx, x)
	})
	return z
}

// Sqrt computes the square root: d(sqrt(x)) = dx / (2·sqrt(x)).
func (b *ForwardBackend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Sqrt(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Div(tx, b.inner.MulScalar(z, 2))
	})
	return z
}

// Sin computes the sine: d(sin(x)) = cos(x)·dx.
func (b *ForwardBackend[B]) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Sin(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Mul(b.inner.Cos(x), tx)
	})
	return z
}

// Cos computes the cosine: d(cos(x)) = -sin(x)·dx.
func (b *ForwardBackend[B]) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Cos(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.MulScalar(b.inner.Mul(b.inner.Sin(x), tx), -1)
	})
	return z
}

// Tanh computes the hyperbolic tangent: d(tanh(x)) = (1 - tanh(x)²)·dx.
func (b *ForwardBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Tanh(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		one := b.inner.AddScalar(b.inner.MulScalar(b.inner.Mul(z, z), -1), 1)
		return b.inner.Mul(one, tx)
	})
	return z
}

// Sum reduces to the total sum: d(sum(x)) = sum(dx).
func (b *ForwardBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	z := b.inner.Sum(x)
	b.propagate1(x, z, func(tx *tensor.RawTensor) *tensor.RawTensor {
		return b.inner.Sum(tx)
	})
	return z
}

// propagate1 computes and associates the output tangent of a unary op.
// rule receives the input tangent and returns the output tangent.
func (b *ForwardBackend[B]) propagate1(x, z *tensor.RawTensor, rule func(*tensor.RawTensor) *tensor.RawTensor) {
	lvl := b.activeLevel()
	if lvl == nil {
		return
	}
	tx := lvl.tangent(x)
	if tx == nil {
		return
	}
	lvl.associate(z, b.matchShape(rule(tx), z))
}

// propagate2 computes and associates the output tangent of a binary op.
// Inputs with no live tangent are treated as having a zero tangent, so their
// term is skipped entirely.
func (b *ForwardBackend[B]) propagate2(x, y, z *tensor.RawTensor, dx, dy func(*tensor.RawTensor) *tensor.RawTensor) {
	lvl := b.activeLevel()
	if lvl == nil {
		return
	}
	tx, ty := lvl.tangent(x), lvl.tangent(y)
	if tx == nil && ty == nil {
		return
	}

	var tz *tensor.RawTensor
	if tx != nil {
		tz = dx(tx)
	}
	if ty != nil {
		term := dy(ty)
		if tz == nil {
			tz = term
		} else {
			tz = b.inner.Add(tz, term)
		}
	}

	lvl.associate(z, b.matchShape(tz, z))
}

// matchShape broadcasts a tangent up to the primal's shape when a skipped
// zero-tangent term left it smaller. Tangent and primal shapes must agree.
func (b *ForwardBackend[B]) matchShape(t, primal *tensor.RawTensor) *tensor.RawTensor {
	if t.Shape().Equal(primal.Shape()) {
		return t
	}
	return b.inner.Add(t, zerosLike(primal))
}

// zerosLike allocates a zero tensor with the same shape and dtype.
func zerosLike(r *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(r.Shape(), r.DType(), r.Device())
	if err != nil {
		panic(err)
	}
	return out
}
