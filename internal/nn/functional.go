package nn

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// FunctionalCall applies a module with an explicit, immutable name → tensor
// mapping in place of its stored parameters.
//
// This is the supported way to run a module with dual-valued parameters:
// wrap each parameter's dual (from MakeDual) in a tensor and pass the
// mapping here. The module's own state is never mutated, so the same module
// can safely serve other computations concurrently.
//
// Every parameter name of the module must be present in params with a
// tensor of the matching shape; unknown names are rejected.
func FunctionalCall[B tensor.Backend](
	m FunctionalModule[B],
	params map[string]*tensor.Tensor[float32, B],
	input *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], error) {
	named := m.NamedParameters()

	for name := range params {
		if _, ok := named[name]; !ok {
			return nil, fmt.Errorf("nn: functional call: unknown parameter %q", name)
		}
	}
	for name, p := range named {
		sub, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("nn: functional call: missing parameter %q", name)
		}
		if !sub.Shape().Equal(p.Tensor().Shape()) {
			return nil, fmt.Errorf("nn: functional call: parameter %q shape mismatch: expected %v, got %v",
				name, p.Tensor().Shape(), sub.Shape())
		}
	}

	return m.ForwardWith(params, input), nil
}
