package autodiff

import "errors"

// Common errors.
var (
	// ErrNoAdjoint is returned when an adjoint is requested before any
	// backward pass reached the node.
	ErrNoAdjoint = errors.New("adjoint not computed: run Backward first")

	// ErrEmptyAdjoint is returned when a non-terminal node is processed
	// during Backward without any pending contribution.
	ErrEmptyAdjoint = errors.New("no adjoint contribution reached node")

	ErrNotLeaf       = errors.New("node is not a leaf")
	ErrInvalidVar    = errors.New("invalid variable handle")
	ErrForeignVar    = errors.New("variables belong to different sessions")
	ErrSessionClosed = errors.New("session is closed")
	ErrUnknownOrder  = errors.New("unknown traversal order")
)
