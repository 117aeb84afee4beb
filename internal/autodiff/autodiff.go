// Package autodiff implements reverse-mode automatic differentiation over
// scalar expression graphs.
//
// Architecture:
//   - Session: arena that owns every node created during a computation
//   - Var: lightweight handle (session + arena index) used to build expressions
//   - ops: closed set of operations with forward and gradient rules
//   - Backward: orders the reachable graph, seeds the terminal and
//     propagates adjoints, summing contributions from multiple paths
//
// Adjoints are graph nodes, not plain floats, so a derivative can itself be
// backpropagated to obtain higher-order derivatives.
//
// Usage:
//
//	s := autodiff.New(autodiff.Options{})
//	x := s.Var(2)
//	y := x.Sin().Log().Neg() // y = -log(sin(x))
//	fmt.Println(y.Value())   // 0.0950830
//
//	if err := y.Backward(); err != nil {
//	    return err
//	}
//	dx, _ := x.Grad() // 0.4576575
//
// A Session is not safe for concurrent use.
package autodiff

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
)

// Version of the engine, recorded in snapshots.
const Version = "0.1.0"

// DefaultNamePrefix is prepended to the ordinal of every node name.
const DefaultNamePrefix = "v"

// noAdjoint marks a node whose adjoint has never been computed.
const noAdjoint = -1

// node is a vertex of the expression graph.
type node struct {
	name    string
	value   float64  // Cached value; authoritative for leaves
	op      ops.Kind // ops.None for leaves
	inputs  []int    // Arena indices, ordered
	adjoint int      // Arena index of the adjoint expression, or noAdjoint
	pending []int    // Adjoint contributions not yet summed
}

// Options configures a Session.
type Options struct {
	NamePrefix string       // Node name prefix (default: "v")
	Order      Order        // Backward traversal strategy (default: OrderDFS)
	Logger     *slog.Logger // Debug logging (default: discard)
	Metrics    *Metrics     // Optional Prometheus collectors
}

// Session is the node store of one computation session.
//
// Nodes are appended to a dense arena and never freed individually; Close
// releases them all at once.
type Session struct {
	id      uuid.UUID
	prefix  string
	order   Order
	logger  *slog.Logger
	metrics *Metrics

	nodes  []node
	byName map[string]int
	closed bool
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.NamePrefix == "" {
		opts.NamePrefix = DefaultNamePrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Session{
		id:      uuid.New(),
		prefix:  opts.NamePrefix,
		order:   opts.Order,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		nodes:   make([]node, 0, 64),
		byName:  make(map[string]int),
	}
	s.debug("session created", slog.String("order", s.order.String()))
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Order returns the backward traversal strategy.
func (s *Session) Order() Order {
	return s.order
}

// Len returns the number of nodes in the arena.
func (s *Session) Len() int {
	return len(s.nodes)
}

// Var creates a leaf node holding value.
func (s *Session) Var(value float64) Var {
	s.mustOpen()
	return Var{s: s, id: s.leaf(value)}
}

// Lookup returns the node with the given display name.
func (s *Session) Lookup(name string) (Var, bool) {
	if s.closed {
		return Var{}, false
	}
	id, ok := s.byName[name]
	if !ok {
		return Var{}, false
	}
	return Var{s: s, id: id}, true
}

// All iterates over every node in creation order.
func (s *Session) All() iter.Seq[Var] {
	return func(yield func(Var) bool) {
		for i := range s.nodes {
			if !yield(Var{s: s, id: i}) {
				return
			}
		}
	}
}

// Dump writes one line per node in creation order:
//
//	v0
//	v2: log(v0)
//	v3: v0 * v1
func (s *Session) Dump(w io.Writer) error {
	if s.closed {
		return ErrSessionClosed
	}
	for i := range s.nodes {
		if _, err := io.WriteString(w, s.describe(i)+"\n"); err != nil {
			return fmt.Errorf("dump %s: %w", s.nodes[i].name, err)
		}
	}
	return nil
}

// ZeroGradient clears the pending adjoint contributions of every node.
//
// Cached adjoints are kept and stay stale until the next Backward
// overwrites them. Call ZeroGradient between independent backward passes
// over the same graph; otherwise contributions of the previous pass are
// summed into the next one.
func (s *Session) ZeroGradient() {
	for i := range s.nodes {
		s.nodes[i].pending = nil
	}
}

// Clone returns a deep copy of the arena under a new session ID.
// Use Rebind to translate handles into the clone.
func (s *Session) Clone() *Session {
	s.mustOpen()
	c := &Session{
		id:      uuid.New(),
		prefix:  s.prefix,
		order:   s.order,
		logger:  s.logger,
		metrics: s.metrics,
		nodes:   make([]node, len(s.nodes), max(cap(s.nodes), 64)),
		byName:  make(map[string]int, len(s.byName)),
	}
	for i, n := range s.nodes {
		n.inputs = append([]int(nil), n.inputs...)
		n.pending = append([]int(nil), n.pending...)
		c.nodes[i] = n
		c.byName[n.name] = i
	}
	return c
}

// Rebind returns the handle with v's arena index in this session.
// Panics if the index does not exist here.
func (s *Session) Rebind(v Var) Var {
	s.mustOpen()
	if v.s == nil || v.id < 0 || v.id >= len(s.nodes) {
		panic(fmt.Errorf("rebind %v: %w", v, ErrInvalidVar))
	}
	return Var{s: s, id: v.id}
}

// Close releases every node. Handles of a closed session must not be used.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.debug("session closed", slog.Int("nodes", len(s.nodes)))
	s.nodes = nil
	s.byName = nil
	s.closed = true
}

// leaf appends a leaf node and returns its index.
func (s *Session) leaf(value float64) int {
	return s.push(node{value: value, op: ops.None})
}

// apply appends an interior node computing k over inputs.
// The value is left at zero until the node is evaluated.
func (s *Session) apply(k ops.Kind, inputs ...int) int {
	return s.push(node{op: k, inputs: inputs})
}

func (s *Session) push(n node) int {
	id := len(s.nodes)
	n.name = s.prefix + strconv.Itoa(id)
	n.adjoint = noAdjoint
	s.nodes = append(s.nodes, n)
	s.byName[n.name] = id
	s.metrics.nodeCreated(n.op)
	return id
}

func (s *Session) describe(id int) string {
	n := &s.nodes[id]
	switch len(n.inputs) {
	case 1:
		return fmt.Sprintf("%s: %s(%s)", n.name, n.op.Symbol(), s.nodes[n.inputs[0]].name)
	case 2:
		return fmt.Sprintf("%s: %s %s %s", n.name,
			s.nodes[n.inputs[0]].name, n.op.Symbol(), s.nodes[n.inputs[1]].name)
	default:
		return n.name
	}
}

func (s *Session) mustOpen() {
	if s.closed {
		panic(ErrSessionClosed)
	}
}

func (s *Session) debug(msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, msg,
		append([]slog.Attr{slog.String("session", s.id.String())}, attrs...)...)
}
