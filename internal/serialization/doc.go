// Package serialization provides the .adg snapshot format for saving and
// restoring expression-graph sessions.
//
// Format structure:
//
//	Fixed header (64 bytes):
//	  0x00-0x03: Magic "ADGR"
//	  0x04-0x07: Version (uint32 LE)
//	  0x08-0x0B: Flags (uint32 LE)
//	  0x0C-0x0F: Reserved
//	  0x10-0x17: Header size (uint64 LE)
//	  0x18-0x1F: Reserved
//	  0x20-0x3F: SHA-256 of the JSON header
//	JSON header: graph metadata and node records
//
// Nodes are stored in arena order. Every input index refers to an earlier
// node; adjoint and pending indices may refer to any node in the file.
//
// Example usage:
//
//	// Save a session
//	if err := serialization.WriteFile("graph.adg", session.Export(nil)); err != nil {
//	    return err
//	}
//
//	// Load it back
//	header, err := serialization.ReadFile("graph.adg")
//	if err != nil {
//	    return err
//	}
//	session, err := autodiff.Restore(header, autodiff.Options{})
package serialization
