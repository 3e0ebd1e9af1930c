// Package gradcheck verifies forward-mode derivatives against finite
// differences.
//
// Given a function built from backend operations, CheckJVP computes the
// Jacobian-vector product twice: analytically through the forward-mode
// evaluator, and numerically with a central difference along the tangent
// direction. It reports an error when the two disagree beyond tolerance.
package gradcheck

import (
	"errors"
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/forward"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// cubeEps is the default central-difference step: the cube root of machine
// epsilon minimizes the combined truncation and rounding error for
// second-order accurate differences.
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, 1.0/3)

// Func maps inputs to a single output using the given backend. The same
// function is evaluated both through the forward evaluator (for the analytic
// JVP) and through the plain inner backend (for the numeric JVP), so it must
// only use Backend operations on its inputs.
type Func func(b tensor.Backend, inputs []*tensor.RawTensor) *tensor.RawTensor

// Options configures CheckJVP.
type Options struct {
	// Eps is the central-difference step size. Defaults to cbrt(machine eps).
	Eps float64
	// Tol is the relative tolerance for comparing the analytic and numeric
	// JVPs. Defaults to 1e-4.
	Tol float64
}

func (o Options) withDefaults() Options {
	if o.Eps == 0 {
		o.Eps = cubeEps
	}
	if o.Tol == 0 {
		o.Tol = 1e-4
	}
	return o
}

// CheckJVP verifies that f's forward-mode derivative matches a central
// finite-difference approximation along the given tangent direction.
//
// A nil entry in tangents means that input is held constant (zero tangent).
// At least one tangent must be non-nil. Inputs should be float64 for
// meaningful numeric comparison; float32 works with a looser Tol.
func CheckJVP[B tensor.Backend](
	fb *forward.ForwardBackend[B],
	f Func,
	inputs []*tensor.RawTensor,
	tangents []*tensor.RawTensor,
	opts Options,
) error {
	if len(inputs) != len(tangents) {
		return fmt.Errorf("gradcheck: %d inputs but %d tangents", len(inputs), len(tangents))
	}
	anyTangent := false
	for _, t := range tangents {
		if t != nil {
			anyTangent = true
			break
		}
	}
	if !anyTangent {
		return errors.New("gradcheck: all tangents are nil, nothing to check")
	}

	opts = opts.withDefaults()

	analytic, err := analyticJVP(fb, f, inputs, tangents)
	if err != nil {
		return err
	}

	numeric := numericJVP(fb.Inner(), f, inputs, tangents, opts.Eps)

	if !analytic.Shape().Equal(numeric.Shape()) {
		return fmt.Errorf("gradcheck: analytic JVP shape %v != numeric JVP shape %v",
			analytic.Shape(), numeric.Shape())
	}

	return compare(analytic, numeric, opts.Tol)
}

// analyticJVP evaluates f on duals and unpacks the output tangent.
func analyticJVP[B tensor.Backend](
	fb *forward.ForwardBackend[B],
	f Func,
	inputs []*tensor.RawTensor,
	tangents []*tensor.RawTensor,
) (*tensor.RawTensor, error) {
	var jvp *tensor.RawTensor
	err := fb.WithLevel(func(*forward.Level) error {
		duals := make([]*tensor.RawTensor, len(inputs))
		for i, in := range inputs {
			if tangents[i] == nil {
				duals[i] = in
				continue
			}
			d, err := fb.MakeDual(in, tangents[i])
			if err != nil {
				return fmt.Errorf("gradcheck: input %d: %w", i, err)
			}
			duals[i] = d
		}

		out := f(fb, duals)
		_, t := fb.UnpackDual(out)
		if t == nil {
			return errors.New("gradcheck: function output carries no tangent")
		}
		jvp = t.Contiguous() // survives level teardown
		return nil
	})
	return jvp, err
}

// numericJVP approximates the JVP with a central difference along the
// tangent direction: (f(x + eps·v) - f(x - eps·v)) / (2·eps).
func numericJVP(
	b tensor.Backend,
	f Func,
	inputs []*tensor.RawTensor,
	tangents []*tensor.RawTensor,
	eps float64,
) *tensor.RawTensor {
	plus := perturb(inputs, tangents, eps)
	minus := perturb(inputs, tangents, -eps)

	fPlus := f(b, plus)
	fMinus := f(b, minus)

	diff := subRaw(fPlus, fMinus)
	scale(diff, 1/(2*eps))
	return diff
}

// perturb returns copies of inputs shifted by eps along their tangents.
// Inputs with nil tangent are passed through unchanged.
func perturb(inputs, tangents []*tensor.RawTensor, eps float64) []*tensor.RawTensor {
	out := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		if tangents[i] == nil {
			out[i] = in
			continue
		}
		shifted := in.Contiguous()
		t := tangents[i].Contiguous()
		switch in.DType() {
		case tensor.Float32:
			data, dir := shifted.AsFloat32(), t.AsFloat32()
			for j := range data {
				data[j] += float32(eps) * dir[j]
			}
		case tensor.Float64:
			data, dir := shifted.AsFloat64(), t.AsFloat64()
			for j := range data {
				data[j] += eps * dir[j]
			}
		}
		out[i] = shifted
	}
	return out
}

func subRaw(a, b *tensor.RawTensor) *tensor.RawTensor {
	out := a.Contiguous()
	bd := b.Contiguous()
	switch a.DType() {
	case tensor.Float32:
		x, y := out.AsFloat32(), bd.AsFloat32()
		for i := range x {
			x[i] -= y[i]
		}
	case tensor.Float64:
		x, y := out.AsFloat64(), bd.AsFloat64()
		for i := range x {
			x[i] -= y[i]
		}
	}
	return out
}

func scale(t *tensor.RawTensor, s float64) {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] *= float32(s)
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] *= s
		}
	}
}

// compare checks |analytic - numeric| <= tol·max(1, |numeric|) element-wise.
func compare(analytic, numeric *tensor.RawTensor, tol float64) error {
	at := analytic.Contiguous()
	nt := numeric.Contiguous()

	n := at.NumElements()
	for i := 0; i < n; i++ {
		var a, m float64
		switch at.DType() {
		case tensor.Float32:
			a, m = float64(at.AsFloat32()[i]), float64(nt.AsFloat32()[i])
		case tensor.Float64:
			a, m = at.AsFloat64()[i], nt.AsFloat64()[i]
		}
		if diff := math.Abs(a - m); diff > tol*math.Max(1, math.Abs(m)) {
			return fmt.Errorf("gradcheck: JVP mismatch at element %d: analytic %g vs numeric %g (diff %g, tol %g)",
				i, a, m, diff, tol)
		}
	}
	return nil
}
