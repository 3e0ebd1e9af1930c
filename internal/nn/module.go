// Package nn implements a minimal neural-network module layer for use with
// the forward-mode evaluator.
//
// This package provides:
//   - Module interface: base interface for all components
//   - Parameter: named model parameters
//   - Linear: fully connected layer
//   - FunctionalCall: stateless module application with an explicit
//     parameter mapping, the supported way to run a module with dual-valued
//     parameters
package nn

import (
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Module is the base interface for all model components.
//
// Type parameter B must satisfy the tensor.Backend interface. When B is the
// forward evaluator, tangents attached to the input (or to parameters via
// FunctionalCall) propagate through Forward automatically.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all parameters of this module.
	// Returns an empty slice for modules without parameters.
	Parameters() []*Parameter[B]
}

// FunctionalModule is a Module that can additionally be applied statelessly:
// with an explicit parameter mapping instead of its own stored parameters.
// See FunctionalCall.
type FunctionalModule[B tensor.Backend] interface {
	Module[B]

	// NamedParameters returns the module's parameters keyed by name.
	NamedParameters() map[string]*Parameter[B]

	// ForwardWith computes the output using the given parameter tensors in
	// place of the module's own. The mapping must contain every name
	// returned by NamedParameters. Module state is never mutated.
	ForwardWith(params map[string]*tensor.Tensor[float32, B], input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}
