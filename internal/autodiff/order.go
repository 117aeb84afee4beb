package autodiff

import (
	"fmt"
	"slices"
	"strings"
)

// Order selects how Backward sorts the graph reachable from the terminal.
type Order int

const (
	// OrderDFS sorts by reversed depth-first postorder with a visited set.
	// Each reachable node is visited once.
	OrderDFS Order = iota

	// OrderReinsertion walks the graph breadth first and moves a node to the
	// end of the order every time it is rediscovered. Every consumer still
	// precedes its producers, but shared sub-expressions are revisited once
	// per path, which is exponential on deeply shared graphs.
	OrderReinsertion
)

// String returns "dfs" or "reinsertion".
func (o Order) String() string {
	switch o {
	case OrderDFS:
		return "dfs"
	case OrderReinsertion:
		return "reinsertion"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder converts a name produced by String back to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dfs":
		return OrderDFS, nil
	case "reinsertion":
		return OrderReinsertion, nil
	default:
		return OrderDFS, fmt.Errorf("%w: %q", ErrUnknownOrder, s)
	}
}

// topoOrder returns every node reachable from root with each consumer
// placed before all of its inputs. root is always first.
func (s *Session) topoOrder(root int) []int {
	if s.order == OrderReinsertion {
		return s.reinsertionOrder(root)
	}
	order := s.postorder(root)
	slices.Reverse(order)
	return order
}

// postorder returns the nodes reachable from root, inputs before consumers.
func (s *Session) postorder(root int) []int {
	type frame struct {
		id   int
		next int // next input to visit
	}

	// Inputs always have smaller indices than their consumer.
	visited := make([]bool, root+1)
	visited[root] = true
	stack := []frame{{id: root}}
	out := make([]int, 0, 16)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		inputs := s.nodes[top.id].inputs
		if top.next < len(inputs) {
			child := inputs[top.next]
			top.next++
			if !visited[child] {
				visited[child] = true
				stack = append(stack, frame{id: child})
			}
			continue
		}
		out = append(out, top.id)
		stack = stack[:len(stack)-1]
	}
	return out
}

// reinsertionOrder is the breadth-first "last write wins" ordering.
func (s *Session) reinsertionOrder(root int) []int {
	queue := []int{root}
	var sorted []int

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		queue = append(queue, s.nodes[ref].inputs...)

		if i := slices.Index(sorted, ref); i >= 0 {
			sorted = slices.Delete(sorted, i, i+1)
		}
		sorted = append(sorted, ref)
	}
	return sorted
}
