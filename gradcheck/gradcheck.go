// Copyright 2025 Tangent ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gradcheck provides numeric verification of forward-mode
// derivatives.
//
// Use CheckJVP after implementing a custom forward.Function to verify that
// its tangent rule matches a finite-difference approximation.
package gradcheck

import (
	"github.com/tangent-ml/tangent/internal/forward"
	"github.com/tangent-ml/tangent/internal/gradcheck"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Func maps inputs to a single output using the given backend.
type Func = gradcheck.Func

// Options configures CheckJVP.
type Options = gradcheck.Options

// CheckJVP verifies that f's forward-mode derivative matches a central
// finite-difference approximation along the given tangent direction.
func CheckJVP[B tensor.Backend](
	fb *forward.ForwardBackend[B],
	f Func,
	inputs []*tensor.RawTensor,
	tangents []*tensor.RawTensor,
	opts Options,
) error {
	return gradcheck.CheckJVP(fb, f, inputs, tangents, opts)
}
