package optim

import (
	"context"
	"fmt"

	"github.com/born-ml/adgraph/internal/autodiff"
)

// Result summarizes a Minimize run.
type Result struct {
	Steps   int       // Steps completed
	Initial float64   // Loss before the first step
	Final   float64   // Loss after the last step
	Losses  []float64 // Loss before each step
}

// Minimize runs steps iterations of zero-grad, backward and update on loss.
//
// ctx is checked between steps; on cancellation the partial result is
// returned with ctx.Err(). Every backward pass appends its adjoint
// expressions to the session, so the arena grows with steps.
func Minimize(ctx context.Context, loss autodiff.Var, opt Optimizer, steps int) (Result, error) {
	res := Result{Initial: loss.Value(), Losses: make([]float64, 0, steps)}
	res.Final = res.Initial

	for i := range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Losses = append(res.Losses, loss.Value())

		opt.ZeroGrad()
		if err := loss.Backward(); err != nil {
			return res, fmt.Errorf("optim: step %d: %w", i, err)
		}
		if err := opt.Step(); err != nil {
			return res, fmt.Errorf("optim: step %d: %w", i, err)
		}

		res.Steps = i + 1
		res.Final = loss.Value()
	}
	return res, nil
}
