package ops

import "math"

// Cos: output = cos(x).
//
// Backward pass:
//   - d(cos(x))/dx = -sin(x)
//   - grad_input = outputGrad * -sin(input)
func cosForward(x float64) float64 {
	return math.Cos(x)
}

func cosBackward[T any](b Builder[T], x, outputGrad T) T {
	return b.Mul(outputGrad, b.Neg(b.Sin(x)))
}
