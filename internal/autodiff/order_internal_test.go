package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertConsumersFirst checks that every node precedes all of its inputs.
func assertConsumersFirst(t *testing.T, s *Session, order []int) {
	t.Helper()
	pos := make(map[int]int, len(order))
	for i, id := range order {
		_, dup := pos[id]
		require.False(t, dup, "node %d listed twice", id)
		pos[id] = i
	}
	for _, id := range order {
		for _, in := range s.nodes[id].inputs {
			assert.Less(t, pos[id], pos[in], "%s must precede its input %s", s.nodes[id].name, s.nodes[in].name)
		}
	}
}

func diamond(s *Session) Var {
	x := s.Var(1)
	a := x.Sin()
	b := x.Cos()
	c := a.Mul(b)
	return c.Add(a).Sub(x)
}

func TestTopoOrder(t *testing.T) {
	for _, order := range []Order{OrderDFS, OrderReinsertion} {
		t.Run(order.String(), func(t *testing.T) {
			s := New(Options{Order: order})
			defer s.Close()
			y := diamond(s)

			got := s.topoOrder(y.id)
			assert.Equal(t, y.id, got[0], "terminal comes first")
			assert.Len(t, got, 6)
			assertConsumersFirst(t, s, got)
		})
	}
}

func TestPostorder_SkipsUnreachable(t *testing.T) {
	s := New(Options{})
	defer s.Close()
	x := s.Var(1)
	s.Var(2)
	y := x.Exp()

	assert.Equal(t, []int{x.id, y.id}, s.postorder(y.id))
}

func TestReinsertionOrder_MovesRediscoveredNodes(t *testing.T) {
	s := New(Options{Order: OrderReinsertion})
	defer s.Close()
	x := s.Var(2)
	a := x.Log()
	y := a.Add(x) // x is found from y first, then again through a

	got := s.reinsertionOrder(y.id)
	assert.Equal(t, []int{y.id, a.id, x.id}, got)
}

func TestBackward_SeedsOnlyEmptyTerminal(t *testing.T) {
	s := New(Options{})
	defer s.Close()
	x := s.Var(2)
	y := x.Mul(x)

	require.NoError(t, y.Backward())
	n := s.Len()

	// A second pass without ZeroGradient reuses the terminal's pending seed.
	require.NoError(t, y.Backward())
	assert.Len(t, s.nodes[y.id].pending, 1)
	assert.Greater(t, s.Len(), n)

	g, err := x.Grad()
	require.NoError(t, err)
	assert.Equal(t, 8.0, g, "contributions of both passes are summed")
}
