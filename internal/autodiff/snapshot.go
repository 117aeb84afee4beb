package autodiff

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
	"github.com/born-ml/adgraph/internal/serialization"
)

// Export captures the whole arena, including adjoints and pending
// contributions, as a snapshot header.
func (s *Session) Export(metadata map[string]string) serialization.Header {
	s.mustOpen()

	h := serialization.Header{
		FormatVersion:  serialization.FormatVersion,
		AdgraphVersion: Version,
		SessionID:      s.id.String(),
		CreatedAt:      time.Now().UTC(),
		NamePrefix:     s.prefix,
		Nodes:          make([]serialization.NodeRecord, len(s.nodes)),
		Metadata:       metadata,
	}
	for i, n := range s.nodes {
		rec := serialization.NodeRecord{
			Name:    n.name,
			Inputs:  append([]int(nil), n.inputs...),
			Value:   serialization.Float(n.value),
			Pending: append([]int(nil), n.pending...),
		}
		if n.op != ops.None {
			rec.Op = n.op.String()
		}
		if n.adjoint != noAdjoint {
			adj := n.adjoint
			rec.Adjoint = &adj
		}
		h.Nodes[i] = rec
	}
	return h
}

// Restore rebuilds a session from a snapshot header.
//
// The session keeps the snapshot's ID and name prefix; NamePrefix in opts
// is ignored. Other options apply as in New.
func Restore(h serialization.Header, opts Options) (*Session, error) {
	if err := serialization.Validate(h); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	opts.NamePrefix = h.NamePrefix
	s := New(opts)
	if id, err := uuid.Parse(h.SessionID); err == nil {
		s.id = id
	}

	s.nodes = make([]node, len(h.Nodes), max(len(h.Nodes), 64))
	for i, rec := range h.Nodes {
		kind, err := ops.ParseKind(rec.Op)
		if err != nil {
			return nil, fmt.Errorf("restore node %s: %w", rec.Name, err)
		}
		n := node{
			name:    rec.Name,
			value:   float64(rec.Value),
			op:      kind,
			inputs:  append([]int(nil), rec.Inputs...),
			adjoint: noAdjoint,
			pending: append([]int(nil), rec.Pending...),
		}
		if rec.Adjoint != nil {
			n.adjoint = *rec.Adjoint
		}
		s.nodes[i] = n
		s.byName[n.name] = i
	}

	s.debug("session restored", slog.Int("nodes", len(s.nodes)))
	return s, nil
}
