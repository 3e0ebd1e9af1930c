package forward

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// UnsupportedOpError is reported when an operation is applied to dual values
// but declares no tangent-propagation rule.
type UnsupportedOpError struct {
	Op string
}

func (e *UnsupportedOpError) Error() string {
	return fmt.Sprintf("forward: operation %q does not support forward-mode differentiation", e.Op)
}

// Context carries intermediate state from a Function's forward computation
// to its tangent rule. The state is exclusively owned by the single
// forward/JVP pair that created it: Apply frees it once the JVP has consumed
// it, unless the Function calls Retain to declare it needs the state in a
// later pass.
type Context struct {
	saved  []*tensor.RawTensor
	retain bool
}

// Save stores tensors for reuse in the JVP rule. Each tensor is retained as
// a view so the context owns its reference.
func (c *Context) Save(ts ...*tensor.RawTensor) {
	for _, t := range ts {
		c.saved = append(c.saved, t.Clone())
	}
}

// Saved returns the tensors stored by the forward rule, in Save order.
func (c *Context) Saved() []*tensor.RawTensor {
	return c.saved
}

// Retain declares that the saved state is needed again after the JVP rule
// runs, preventing Apply from freeing it.
func (c *Context) Retain() {
	c.retain = true
}

// Free releases all saved tensors. Safe to call more than once.
func (c *Context) Free() {
	for _, t := range c.saved {
		t.Release()
	}
	c.saved = nil
}

// Function is the extension point for custom operations. A Function pairs a
// forward rule with an explicit rule for propagating an incoming tangent
// (its local derivative). The JVP rule may read state the forward rule
// saved in the Context.
//
// A Function that cannot propagate tangents should return an
// *UnsupportedOpError from JVP.
type Function interface {
	// Name identifies the operation in error reports.
	Name() string

	// Forward computes the primal output from the primal inputs.
	Forward(ctx *Context, backend tensor.Backend, inputs ...*tensor.RawTensor) *tensor.RawTensor

	// JVP computes the output tangent from the input tangents. A nil entry
	// in tangents means that input has a zero tangent.
	JVP(ctx *Context, backend tensor.Backend, tangents ...*tensor.RawTensor) (*tensor.RawTensor, error)
}

// Apply runs a custom Function on the given inputs, propagating tangents
// when any input carries one in the active level.
//
// Ownership of saved state: the Context is freed as soon as it is no longer
// needed, either immediately when no tangent propagation happens, or right
// after the JVP rule consumed it (unless the Function retained it).
func (b *ForwardBackend[B]) Apply(fn Function, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	ctx := &Context{}
	out := fn.Forward(ctx, b.inner, inputs...)

	lvl := b.activeLevel()
	if lvl == nil {
		ctx.Free()
		return out, nil
	}

	tangents := make([]*tensor.RawTensor, len(inputs))
	hasTangent := false
	for i, in := range inputs {
		if t := lvl.tangent(in); t != nil {
			tangents[i] = t
			hasTangent = true
		}
	}
	if !hasTangent {
		ctx.Free()
		return out, nil
	}

	tz, err := fn.JVP(ctx, b.inner, tangents...)
	if !ctx.retain {
		ctx.Free()
	}
	if err != nil {
		return nil, fmt.Errorf("forward: apply %s: %w", fn.Name(), err)
	}

	lvl.associate(out, b.matchShape(tz, out))
	return out, nil
}
