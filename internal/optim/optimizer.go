// Package optim implements gradient-based optimizers over the leaf
// variables of an expression graph.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Gradient descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - Minimize: Repeated backward pass and step on one loss expression
//
// Example usage:
//
//	s := autodiff.New(autodiff.Options{})
//	x := s.Var(0)
//	loss := x.Sub(s.Var(3)).Mul(x.Sub(s.Var(3))) // (x-3)²
//
//	optimizer := optim.NewAdam([]autodiff.Var{x}, optim.AdamConfig{LR: 0.1})
//	res, err := optim.Minimize(ctx, loss, optimizer, 1000)
package optim

import (
	"errors"
	"fmt"

	"github.com/born-ml/adgraph/internal/autodiff"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers read the adjoint of each parameter and write the updated
// value back into the leaf.
type Optimizer interface {
	// Step applies one update to every parameter, using the adjoint left
	// by the most recent backward pass that reached it.
	//
	// Parameters without an adjoint are skipped.
	Step() error

	// ZeroGrad clears the pending adjoint contributions of the sessions
	// owning the parameters.
	//
	// Call it before each backward pass; otherwise contributions of the
	// previous pass are summed into the next adjoint.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// getGradient returns the adjoint value of param.
//
// ok is false if no backward pass has reached the parameter.
func getGradient(param autodiff.Var) (g float64, ok bool, err error) {
	g, err = param.Grad()
	if errors.Is(err, autodiff.ErrNoAdjoint) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return g, true, nil
}

// paramGrad pairs a parameter with its adjoint value.
type paramGrad struct {
	param autodiff.Var
	grad  float64
}

// gradients reads the adjoint of every parameter before any of them is
// updated. Adjoints are expressions over leaf values, so reading them
// after an update would mix old and new parameter values.
//
// Parameters without an adjoint are left out.
func gradients(params []autodiff.Var) ([]paramGrad, error) {
	out := make([]paramGrad, 0, len(params))
	for _, param := range params {
		g, ok, err := getGradient(param)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, paramGrad{param: param, grad: g})
	}
	return out, nil
}

// setValue writes an updated parameter value.
func setValue(param autodiff.Var, value float64) error {
	if err := param.SetValue(value); err != nil {
		return fmt.Errorf("optim: update %s: %w", param.Name(), err)
	}
	return nil
}

// zeroGrad clears every distinct session of params once.
func zeroGrad(params []autodiff.Var) {
	seen := make(map[*autodiff.Session]bool, 1)
	for _, p := range params {
		s := p.Session()
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		s.ZeroGradient()
	}
}
