package forward

import (
	"errors"
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// ErrNoActiveLevel is reported when a dual value is created outside any
// differentiation level.
var ErrNoActiveLevel = errors.New("forward: no active differentiation level (use EnterLevel or WithLevel)")

// ShapeMismatchError is reported when a tangent's shape does not match its
// primal's shape at pairing time.
type ShapeMismatchError struct {
	Primal  tensor.Shape
	Tangent tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("forward: tangent shape %v does not match primal shape %v", e.Tangent, e.Primal)
}

// LevelNestingError is reported when a level that is not the innermost
// active one is exited.
type LevelNestingError struct {
	Exiting   int
	Innermost int
}

func (e *LevelNestingError) Error() string {
	if e.Innermost < 0 {
		return fmt.Sprintf("forward: exiting level %d but no level is active", e.Exiting)
	}
	return fmt.Sprintf("forward: exiting level %d but level %d is innermost (levels must exit in LIFO order)",
		e.Exiting, e.Innermost)
}

// MakeDual pairs a primal tensor with a tangent representing the direction
// of the directional derivative (the v in a Jacobian-vector product).
//
// The returned dual is a view of the primal: it shares the primal's buffer.
// If the tangent's memory layout differs from the primal's, the tangent
// values are copied into a new dense tensor (cost: one copy); otherwise the
// tangent is used as-is and identity is preserved.
//
// Must be called inside an active level. Shape or dtype mismatch between
// primal and tangent is a reported error and no dual is created.
func (b *ForwardBackend[B]) MakeDual(primal, tangent *tensor.RawTensor) (*tensor.RawTensor, error) {
	lvl := b.activeLevel()
	if lvl == nil {
		return nil, ErrNoActiveLevel
	}
	if tangent == nil {
		return nil, errors.New("forward: nil tangent (a missing tangent is expressed by not calling MakeDual)")
	}
	if !primal.Shape().Equal(tangent.Shape()) {
		return nil, &ShapeMismatchError{Primal: primal.Shape().Clone(), Tangent: tangent.Shape().Clone()}
	}
	if primal.DType() != tangent.DType() {
		return nil, fmt.Errorf("forward: tangent dtype %s does not match primal dtype %s",
			tangent.DType(), primal.DType())
	}

	if !tangent.SameLayout(primal) {
		tangent = tangent.Contiguous()
	}

	dual := primal.Clone() // view of the primal
	lvl.associate(dual, tangent)
	return dual, nil
}

// UnpackDual returns the primal of a value and, when the value carries a
// live tangent association in the innermost active level, its tangent.
//
// A nil tangent means "no sensitivity computed" and is distinct from a zero
// tangent. Unpacking outside any level, or after the originating level has
// exited, returns a nil tangent; it is never an error.
func (b *ForwardBackend[B]) UnpackDual(v *tensor.RawTensor) (primal, tangent *tensor.RawTensor) {
	lvl := b.activeLevel()
	if lvl == nil {
		return v, nil
	}
	return v, lvl.tangent(v)
}
