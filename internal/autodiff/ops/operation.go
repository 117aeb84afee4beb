// Package ops defines the operations of the scalar expression graph.
//
// Each operation is a Kind from a closed set. For every Kind the package
// provides:
//   - Forward pass: Compute evaluates the operation on input values
//   - Backward pass: Gradient builds one adjoint contribution per input
//
// Gradients are built through a Builder rather than computed as plain
// floats, so the contributions are themselves graph nodes and can be
// differentiated again.
//
// Supported operations:
//   - Add: a + b (d/da = 1, d/db = 1)
//   - Sub: a - b (d/da = 1, d/db = -1)
//   - Mul: a * b (d/da = b, d/db = a)
//   - Div: a / b (d/da = 1/b, d/db = -a/b²)
//   - Neg: -x (d/dx = -1)
//   - Sin, Cos, Log, Exp: elementary functions
package ops

import (
	"fmt"
	"strings"
)

// Kind identifies an operation. The zero value None marks a leaf node.
type Kind uint8

// Operation kinds.
const (
	None Kind = iota
	Add
	Sub
	Mul
	Div
	Neg
	Sin
	Cos
	Log
	Exp

	numKinds
)

type kindInfo struct {
	name   string
	symbol string
	arity  int
}

var kinds = [numKinds]kindInfo{
	None: {name: "none", symbol: "", arity: 0},
	Add:  {name: "add", symbol: "+", arity: 2},
	Sub:  {name: "sub", symbol: "-", arity: 2},
	Mul:  {name: "mul", symbol: "*", arity: 2},
	Div:  {name: "div", symbol: "/", arity: 2},
	Neg:  {name: "neg", symbol: "neg", arity: 1},
	Sin:  {name: "sin", symbol: "sin", arity: 1},
	Cos:  {name: "cos", symbol: "cos", arity: 1},
	Log:  {name: "log", symbol: "log", arity: 1},
	Exp:  {name: "exp", symbol: "exp", arity: 1},
}

// Builder creates graph nodes for gradient expressions.
//
// T is the handle type of the graph the gradients are added to.
type Builder[T any] interface {
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	Neg(x T) T
	Sin(x T) T
	Cos(x T) T
	Log(x T) T
	Exp(x T) T
}

// Valid reports whether k is a known kind (None included).
func (k Kind) Valid() bool {
	return k < numKinds
}

// String returns the canonical lowercase name, e.g. "mul".
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// Symbol returns the token used in diagnostic dumps: an infix operator for
// binary kinds, a function name for unary kinds.
func (k Kind) Symbol() string {
	if !k.Valid() {
		return "?"
	}
	return kinds[k].symbol
}

// Arity returns the number of inputs the operation consumes.
func (k Kind) Arity() int {
	if !k.Valid() {
		return 0
	}
	return kinds[k].arity
}

// ParseKind converts a canonical name back to a Kind.
// The empty string parses as None.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return None, nil
	}
	for k := Kind(0); k < numKinds; k++ {
		if kinds[k].name == strings.ToLower(s) {
			return k, nil
		}
	}
	return None, fmt.Errorf("ops: unknown operation %q", s)
}

// Compute evaluates the forward pass of k.
//
// Panics if k is None or invalid, or if len(inputs) does not match the
// arity of k.
func Compute(k Kind, inputs []float64) float64 {
	checkArity(k, len(inputs))

	switch k {
	case Add:
		return addForward(inputs[0], inputs[1])
	case Sub:
		return subForward(inputs[0], inputs[1])
	case Mul:
		return mulForward(inputs[0], inputs[1])
	case Div:
		return divForward(inputs[0], inputs[1])
	case Neg:
		return negForward(inputs[0])
	case Sin:
		return sinForward(inputs[0])
	case Cos:
		return cosForward(inputs[0])
	case Log:
		return logForward(inputs[0])
	case Exp:
		return expForward(inputs[0])
	default:
		panic(fmt.Sprintf("ops: compute on %s", k))
	}
}

// Gradient computes the adjoint contribution of each input given the
// adjoint of the output. The returned slice has one entry per input, in
// input order.
//
// Panics under the same conditions as Compute.
func Gradient[T any](k Kind, b Builder[T], inputs []T, outputGrad T) []T {
	checkArity(k, len(inputs))

	switch k {
	case Add:
		ga, gb := addBackward(b, inputs[0], inputs[1], outputGrad)
		return []T{ga, gb}
	case Sub:
		ga, gb := subBackward(b, inputs[0], inputs[1], outputGrad)
		return []T{ga, gb}
	case Mul:
		ga, gb := mulBackward(b, inputs[0], inputs[1], outputGrad)
		return []T{ga, gb}
	case Div:
		ga, gb := divBackward(b, inputs[0], inputs[1], outputGrad)
		return []T{ga, gb}
	case Neg:
		return []T{negBackward(b, inputs[0], outputGrad)}
	case Sin:
		return []T{sinBackward(b, inputs[0], outputGrad)}
	case Cos:
		return []T{cosBackward(b, inputs[0], outputGrad)}
	case Log:
		return []T{logBackward(b, inputs[0], outputGrad)}
	case Exp:
		return []T{expBackward(b, inputs[0], outputGrad)}
	default:
		panic(fmt.Sprintf("ops: gradient of %s", k))
	}
}

func checkArity(k Kind, n int) {
	if k == None || !k.Valid() {
		panic(fmt.Sprintf("ops: %s is not an operation", k))
	}
	if want := kinds[k].arity; n != want {
		panic(fmt.Sprintf("ops: %s expects %d inputs, got %d", k, want, n))
	}
}
