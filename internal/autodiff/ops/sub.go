package ops

// Sub: output = a - b.
//
// Backward pass:
//   - d(a-b)/da = 1, so grad_a = outputGrad
//   - d(a-b)/db = -1, so grad_b = -outputGrad
func subForward(a, b float64) float64 {
	return a - b
}

func subBackward[T any](b Builder[T], _, _, outputGrad T) (gradA, gradB T) {
	return outputGrad, b.Neg(outputGrad)
}
