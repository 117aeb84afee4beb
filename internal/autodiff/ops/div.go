package ops

// Div: output = a / b.
//
// Backward pass:
//   - d(a/b)/da = 1/b, so grad_a = outputGrad / b
//   - d(a/b)/db = -a/b², so grad_b = -a * outputGrad / (b * b)
func divForward(a, b float64) float64 {
	return a / b
}

func divBackward[T any](bld Builder[T], a, b, outputGrad T) (gradA, gradB T) {
	gradA = bld.Div(outputGrad, b)

	numerator := bld.Mul(bld.Neg(a), outputGrad)
	gradB = bld.Div(numerator, bld.Mul(b, b))

	return gradA, gradB
}
