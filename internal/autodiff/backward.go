package autodiff

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
)

// Backward computes the adjoint of every node reachable from v, treating v
// as the terminal output.
//
// Algorithm:
//  1. Order the reachable graph so every consumer precedes its inputs
//  2. Seed the terminal with a new leaf 1.0 if it has no pending contribution
//  3. Walk the order: sum each node's pending contributions into its
//     adjoint, then push one contribution per input using the gradient
//     rule of the node's operation
//
// Contributions are summed only when their node is processed, so a node
// fed by several paths receives the sum over all of them. Pending
// contributions survive the pass; call Session.ZeroGradient before an
// unrelated backward pass over the same nodes.
//
// Adjoints are graph nodes appended to the session, which makes higher
// order derivatives available by calling Backward on an adjoint.
func (v Var) Backward() error {
	if err := v.check(); err != nil {
		return err
	}
	s := v.s
	start := time.Now()

	order := s.topoOrder(v.id)

	if len(s.nodes[v.id].pending) == 0 {
		seed := s.leaf(1)
		s.nodes[v.id].pending = append(s.nodes[v.id].pending, seed)
	}

	b := builder{s: s}
	for _, id := range order {
		// The builder appends to s.nodes; never hold a *node across it.
		pending := s.nodes[id].pending
		if len(pending) == 0 {
			return fmt.Errorf("backward from %s: %s: %w", s.nodes[v.id].name, s.nodes[id].name, ErrEmptyAdjoint)
		}

		adjoint := pending[0]
		for _, c := range pending[1:] {
			adjoint = b.Add(adjoint, c)
		}
		s.nodes[id].adjoint = adjoint

		op := s.nodes[id].op
		if op == ops.None {
			continue
		}
		inputs := s.nodes[id].inputs
		grads := ops.Gradient[int](op, b, inputs, adjoint)
		for j, in := range inputs {
			s.nodes[in].pending = append(s.nodes[in].pending, grads[j])
		}
	}

	elapsed := time.Since(start)
	s.metrics.backwardDone(len(order), elapsed)
	s.debug("backward pass complete",
		slog.String("terminal", s.nodes[v.id].name),
		slog.Int("nodes", len(order)),
		slog.Int("arena", len(s.nodes)),
		slog.Duration("duration", elapsed))
	return nil
}
