package serialization

import (
	"fmt"
	"strconv"

	"github.com/born-ml/adgraph/internal/autodiff/ops"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize  = 256 * 1024 * 1024 // 256MB - maximum JSON header size
	MaxNodeCount   = 10_000_000        // Maximum number of nodes in a file
	MaxNodeNameLen = 256               // Maximum node name length
)

// Validate checks the structural invariants of a snapshot:
//   - names are bounded and follow NamePrefix + arena index, so a restored
//     session never hands out a name that is already taken
//   - operation names are known and the input count matches their arity
//   - inputs refer to earlier nodes
//   - adjoint and pending indices are in range
func Validate(h Header) error {
	if h.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.FormatVersion)
	}
	if len(h.Nodes) > MaxNodeCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyNodes, len(h.Nodes), MaxNodeCount)
	}

	if h.NamePrefix == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty name prefix"}
	}

	for i, n := range h.Nodes {
		if n.Name == "" || len(n.Name) > MaxNodeNameLen {
			return &ValidationError{
				Type:    "invalid_name",
				Index:   i,
				Details: fmt.Sprintf("name length %d not in [1, %d]", len(n.Name), MaxNodeNameLen),
			}
		}
		if want := h.NamePrefix + strconv.Itoa(i); n.Name != want {
			return &ValidationError{
				Type:    "unexpected_name",
				Node:    n.Name,
				Index:   i,
				Details: fmt.Sprintf("want %q", want),
			}
		}

		kind, err := ops.ParseKind(n.Op)
		if err != nil {
			return &ValidationError{Type: "unknown_op", Node: n.Name, Index: i, Details: err.Error()}
		}
		if len(n.Inputs) != kind.Arity() {
			return &ValidationError{
				Type:    "bad_arity",
				Node:    n.Name,
				Index:   i,
				Details: fmt.Sprintf("%s expects %d inputs, got %d", kind, kind.Arity(), len(n.Inputs)),
			}
		}
		for _, in := range n.Inputs {
			if in < 0 || in >= i {
				return &ValidationError{
					Type:    "forward_reference",
					Node:    n.Name,
					Index:   i,
					Details: fmt.Sprintf("input %d is not an earlier node", in),
				}
			}
		}

		if n.Adjoint != nil && !inRange(*n.Adjoint, len(h.Nodes)) {
			return &ValidationError{
				Type:    "out_of_bounds",
				Node:    n.Name,
				Index:   i,
				Details: fmt.Sprintf("adjoint %d outside [0, %d)", *n.Adjoint, len(h.Nodes)),
			}
		}
		for _, p := range n.Pending {
			if !inRange(p, len(h.Nodes)) {
				return &ValidationError{
					Type:    "out_of_bounds",
					Node:    n.Name,
					Index:   i,
					Details: fmt.Sprintf("pending contribution %d outside [0, %d)", p, len(h.Nodes)),
				}
			}
		}
	}
	return nil
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}
