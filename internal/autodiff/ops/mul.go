package ops

// Mul: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
func mulForward(a, b float64) float64 {
	return a * b
}

func mulBackward[T any](bld Builder[T], a, b, outputGrad T) (gradA, gradB T) {
	return bld.Mul(outputGrad, b), bld.Mul(outputGrad, a)
}
