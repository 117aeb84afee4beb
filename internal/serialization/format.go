package serialization

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Format constants.
const (
	MagicBytes      = "ADGR"
	FormatVersion   = 1
	FixedHeaderSize = 64   // 0x40
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum offset in fixed header
)

// Flags for the .adg format.
const (
	FlagHasAdjoints uint32 = 1 << 0 // bit 0: at least one node carries an adjoint
	FlagHasPending  uint32 = 1 << 1 // bit 1: pending contributions included
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header is the JSON header of a .adg file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	AdgraphVersion string            `json:"adgraph_version"`
	SessionID      string            `json:"session_id"`
	CreatedAt      time.Time         `json:"created_at"`
	NamePrefix     string            `json:"name_prefix"`
	Nodes          []NodeRecord      `json:"nodes"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NodeRecord describes one node of the arena.
type NodeRecord struct {
	Name    string `json:"name"`
	Op      string `json:"op,omitempty"`     // Operation name; empty for leaves
	Inputs  []int  `json:"inputs,omitempty"` // Arena indices
	Value   Float  `json:"value"`            // Cached value
	Adjoint *int   `json:"adjoint,omitempty"`
	Pending []int  `json:"pending,omitempty"`
}

// Float is a float64 that survives JSON encoding when it is NaN or ±Inf.
// Finite values are written as JSON numbers, the others as strings.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", s, err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// flagsFor derives the header flags from the content of h.
func flagsFor(h *Header) uint32 {
	var flags uint32
	for _, n := range h.Nodes {
		if n.Adjoint != nil {
			flags |= FlagHasAdjoints
		}
		if len(n.Pending) > 0 {
			flags |= FlagHasPending
		}
	}
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	return flags
}
