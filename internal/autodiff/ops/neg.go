package ops

// Neg: output = -x.
//
// Backward pass: grad_input = -outputGrad.
func negForward(x float64) float64 {
	return -x
}

func negBackward[T any](b Builder[T], _, outputGrad T) T {
	return b.Neg(outputGrad)
}
