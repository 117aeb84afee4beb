package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTooManyNodes       = errors.New("too many nodes in snapshot")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "forward_reference", "bad_arity")
	Node    string // Node name involved, if any
	Index   int    // Arena index of the node
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: node %q (#%d): %s", e.Type, e.Node, e.Index, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
