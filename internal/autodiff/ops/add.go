package ops

// Add: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
//
// Both inputs receive the same handle.
func addForward(a, b float64) float64 {
	return a + b
}

func addBackward[T any](_ Builder[T], _, _, outputGrad T) (gradA, gradB T) {
	return outputGrad, outputGrad
}
