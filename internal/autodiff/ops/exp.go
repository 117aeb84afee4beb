package ops

import "math"

// Exp: output = e^x.
//
// Backward pass: ∂L/∂input = ∂L/∂output * exp(input).
// exp(input) is rebuilt as a fresh node.
func expForward(x float64) float64 {
	return math.Exp(x)
}

func expBackward[T any](b Builder[T], x, outputGrad T) T {
	return b.Mul(outputGrad, b.Exp(x))
}
