// Copyright 2025 Tangent ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the module layer.
//
// To differentiate a module's output with respect to its parameters with
// forward-mode AD, use FunctionalCall with dual-valued parameter tensors
// instead of mutating module state.
package nn

import (
	"github.com/tangent-ml/tangent/internal/nn"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Module is the base interface for all model components.
type Module[B tensor.Backend] = nn.Module[B]

// FunctionalModule is a Module that can be applied with an explicit
// parameter mapping. See FunctionalCall.
type FunctionalModule[B tensor.Backend] = nn.FunctionalModule[B]

// Parameter represents a named model parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// FunctionalCall applies a module with an explicit, immutable name → tensor
// mapping in place of its stored parameters.
func FunctionalCall[B tensor.Backend](
	m FunctionalModule[B],
	params map[string]*tensor.Tensor[float32, B],
	input *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], error) {
	return nn.FunctionalCall(m, params, input)
}
