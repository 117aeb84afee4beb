package ops

import "math"

// Sin: output = sin(x).
//
// Backward pass:
//   - d(sin(x))/dx = cos(x)
//   - grad_input = outputGrad * cos(input)
func sinForward(x float64) float64 {
	return math.Sin(x)
}

func sinBackward[T any](b Builder[T], x, outputGrad T) T {
	return b.Mul(outputGrad, b.Cos(x))
}
