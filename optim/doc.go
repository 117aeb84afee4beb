// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based optimizers for the leaf variables of
// autodiff expressions.
//
// # Overview
//
// This package contains:
//   - SGD: Gradient descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//   - Minimize: a complete zero-grad, backward, step loop
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/adgraph/autodiff"
//	    "github.com/born-ml/adgraph/optim"
//	)
//
//	func main() {
//	    s := autodiff.New(autodiff.Options{})
//	    x := s.Var(0)
//	    d := x.Sub(s.Var(3))
//	    loss := d.Mul(d) // (x-3)²
//
//	    optimizer := optim.NewAdam(
//	        []autodiff.Var{x},
//	        optim.AdamConfig{
//	            LR:    0.1,
//	            Betas: [2]float64{0.9, 0.999},
//	        },
//	    )
//
//	    res, err := optim.Minimize(context.Background(), loss, optimizer, 500)
//	    // x.Value() ≈ 3
//	}
//
// # Training Loop Pattern
//
// Minimize is equivalent to:
//
//	for range steps {
//	    // 1. Clear pending adjoint contributions
//	    optimizer.ZeroGrad()
//
//	    // 2. Backward pass
//	    if err := loss.Backward(); err != nil {
//	        return err
//	    }
//
//	    // 3. Update parameters
//	    if err := optimizer.Step(); err != nil {
//	        return err
//	    }
//	}
package optim
