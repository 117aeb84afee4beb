package autodiff

import (
	"fmt"
	"slices"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
)

// Var is a handle to a node of a Session.
//
// Vars are small values; copies alias the same node and compare equal with
// ==. The zero Var is invalid.
//
// Methods that build expressions panic when given an invalid handle, a
// handle of another session, or a handle of a closed session.
type Var struct {
	s  *Session
	id int
}

// Session returns the session that owns v.
func (v Var) Session() *Session {
	return v.s
}

// Index returns the arena index of v.
func (v Var) Index() int {
	return v.id
}

// Valid reports whether v refers to a node of an open session.
func (v Var) Valid() bool {
	return v.check() == nil
}

// Name returns the display name of v, e.g. "v3".
func (v Var) Name() string {
	return v.node().name
}

// Op returns the operation kind of v; ops.None for leaves.
func (v Var) Op() ops.Kind {
	return v.node().op
}

// IsLeaf reports whether v was created from a scalar.
func (v Var) IsLeaf() bool {
	return v.node().op == ops.None
}

// NumInputs returns the number of inputs of v.
func (v Var) NumInputs() int {
	return len(v.node().inputs)
}

// Input returns the i-th input of v. Panics if i is out of range.
func (v Var) Input(i int) Var {
	return Var{s: v.s, id: v.node().inputs[i]}
}

// String returns the diagnostic form of v, as printed by Session.Dump.
func (v Var) String() string {
	if err := v.check(); err != nil {
		return "<invalid>"
	}
	return v.s.describe(v.id)
}

// Add returns v + other.
func (v Var) Add(other Var) Var { return v.binary(ops.Add, other) }

// Sub returns v - other.
func (v Var) Sub(other Var) Var { return v.binary(ops.Sub, other) }

// Mul returns v * other.
func (v Var) Mul(other Var) Var { return v.binary(ops.Mul, other) }

// Div returns v / other.
func (v Var) Div(other Var) Var { return v.binary(ops.Div, other) }

// Neg returns -v.
func (v Var) Neg() Var { return v.unary(ops.Neg) }

// Sin returns sin(v).
func (v Var) Sin() Var { return v.unary(ops.Sin) }

// Cos returns cos(v).
func (v Var) Cos() Var { return v.unary(ops.Cos) }

// Log returns ln(v).
func (v Var) Log() Var { return v.unary(ops.Log) }

// Exp returns e^v.
func (v Var) Exp() Var { return v.unary(ops.Exp) }

// Value evaluates v.
//
// Leaves return their stored value. Interior nodes are recomputed from
// their inputs on every call and the results are cached on each node
// visited. A sub-expression shared inside the graph is computed once per
// call.
func (v Var) Value() float64 {
	n := v.node()
	if n.op == ops.None {
		return n.value
	}

	s := v.s
	var in [2]float64
	for _, id := range s.postorder(v.id) {
		nd := &s.nodes[id]
		if nd.op == ops.None {
			continue
		}
		for i, x := range nd.inputs {
			in[i] = s.nodes[x].value
		}
		nd.value = ops.Compute(nd.op, in[:len(nd.inputs)])
	}
	return s.nodes[v.id].value
}

// SetValue replaces the value of a leaf. Consumers see the new value the
// next time they are evaluated.
func (v Var) SetValue(value float64) error {
	if err := v.check(); err != nil {
		return err
	}
	n := &v.s.nodes[v.id]
	if n.op != ops.None {
		return fmt.Errorf("set value of %s: %w", n.name, ErrNotLeaf)
	}
	n.value = value
	return nil
}

// Adjoint returns the expression of ∂terminal/∂v computed by the last
// backward pass that reached v.
//
// Returns ErrNoAdjoint if no backward pass has reached v.
func (v Var) Adjoint() (Var, error) {
	if err := v.check(); err != nil {
		return Var{}, err
	}
	n := &v.s.nodes[v.id]
	if n.adjoint == noAdjoint {
		return Var{}, fmt.Errorf("%s: %w", n.name, ErrNoAdjoint)
	}
	return Var{s: v.s, id: n.adjoint}, nil
}

// Grad returns the value of v's adjoint.
func (v Var) Grad() (float64, error) {
	adj, err := v.Adjoint()
	if err != nil {
		return 0, err
	}
	return adj.Value(), nil
}

// DependsOn reports whether x is reachable from v through inputs.
// A node depends on itself.
func (v Var) DependsOn(x Var) bool {
	if v.check() != nil || x.s != v.s || x.id > v.id {
		return false
	}
	return slices.Contains(v.s.postorder(v.id), x.id)
}

func (v Var) check() error {
	if v.s == nil {
		return ErrInvalidVar
	}
	if v.s.closed {
		return ErrSessionClosed
	}
	if v.id < 0 || v.id >= len(v.s.nodes) {
		return ErrInvalidVar
	}
	return nil
}

func (v Var) node() *node {
	if err := v.check(); err != nil {
		panic(err)
	}
	return &v.s.nodes[v.id]
}

func (v Var) unary(k ops.Kind) Var {
	v.node()
	return Var{s: v.s, id: v.s.apply(k, v.id)}
}

func (v Var) binary(k ops.Kind, other Var) Var {
	v.node()
	other.node()
	if other.s != v.s {
		panic(fmt.Errorf("%s %s %s: %w", v.Name(), k.Symbol(), other.Name(), ErrForeignVar))
	}
	return Var{s: v.s, id: v.s.apply(k, v.id, other.id)}
}

// builder adapts a Session to ops.Builder over arena indices so gradient
// rules append their expressions to the same arena.
type builder struct {
	s *Session
}

var _ ops.Builder[int] = builder{}

func (b builder) Add(x, y int) int { return b.s.apply(ops.Add, x, y) }
func (b builder) Sub(x, y int) int { return b.s.apply(ops.Sub, x, y) }
func (b builder) Mul(x, y int) int { return b.s.apply(ops.Mul, x, y) }
func (b builder) Div(x, y int) int { return b.s.apply(ops.Div, x, y) }
func (b builder) Neg(x int) int    { return b.s.apply(ops.Neg, x) }
func (b builder) Sin(x int) int    { return b.s.apply(ops.Sin, x) }
func (b builder) Cos(x int) int    { return b.s.apply(ops.Cos, x) }
func (b builder) Log(x int) int    { return b.s.apply(ops.Log, x) }
func (b builder) Exp(x int) int    { return b.s.apply(ops.Exp, x) }
