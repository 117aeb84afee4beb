package ops

import "math"

// Log: output = ln(x).
//
// Backward pass:
//
//	∂L/∂input = ∂L/∂output * (1 / input)
//
// Log is only defined for positive inputs. Non-positive inputs follow
// math.Log (NaN or -Inf) and the gradient is not guarded.
func logForward(x float64) float64 {
	return math.Log(x)
}

func logBackward[T any](b Builder[T], x, outputGrad T) T {
	return b.Div(outputGrad, x)
}
