// Copyright 2025 Tangent ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package forward provides forward-mode automatic differentiation.
//
// Forward-mode AD computes directional derivatives (Jacobian-vector
// products) eagerly alongside the forward pass, using dual numbers: each
// value may carry a tangent representing its sensitivity to a chosen input
// direction. It wraps any backend to add tangent propagation.
//
// Example:
//
//	import (
//	    "github.com/tangent-ml/tangent/backend/cpu"
//	    "github.com/tangent-ml/tangent/forward"
//	    "github.com/tangent-ml/tangent/tensor"
//	)
//
//	func main() {
//	    backend := forward.New(cpu.New())
//
//	    primal := tensor.Randn[float64](tensor.Shape{10, 10}, backend)
//	    direction := tensor.Randn[float64](tensor.Shape{10, 10}, backend)
//
//	    _ = backend.WithLevel(func(*forward.Level) error {
//	        dual, err := backend.MakeDual(primal.Raw(), direction.Raw())
//	        if err != nil {
//	            return err
//	        }
//	        out := backend.Mul(dual, dual) // x², tangent 2x·v
//	        _, jvp := backend.UnpackDual(out)
//	        _ = jvp
//	        return nil
//	    })
//	}
package forward

import (
	"github.com/tangent-ml/tangent/internal/forward"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Backend is the forward-mode differentiation backend. It wraps any
// tensor.Backend and propagates tangents through every operation.
type Backend[B tensor.Backend] = forward.ForwardBackend[B]

// New creates a new forward-mode backend wrapping the given backend.
//
// Example:
//
//	base := cpu.New()
//	backend := forward.New(base)
func New[B tensor.Backend](backend B) *Backend[B] {
	return forward.New(backend)
}

// Level is a differentiation scope bounding the lifetime of tangents.
type Level = forward.Level

// Function is the extension point for custom operations with explicit
// tangent-propagation rules.
type Function = forward.Function

// Context carries saved state from a Function's forward rule to its JVP rule.
type Context = forward.Context

// ErrNoActiveLevel is reported when a dual value is created outside any
// differentiation level.
var ErrNoActiveLevel = forward.ErrNoActiveLevel

// ShapeMismatchError is reported when a tangent's shape does not match its
// primal's shape at pairing time.
type ShapeMismatchError = forward.ShapeMismatchError

// LevelNestingError is reported when levels are exited out of LIFO order.
type LevelNestingError = forward.LevelNestingError

// UnsupportedOpError is reported when an operation applied to dual values
// declares no tangent-propagation rule.
type UnsupportedOpError = forward.UnsupportedOpError
