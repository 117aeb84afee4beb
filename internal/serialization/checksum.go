package serialization

import "crypto/sha256"

// Checksum is the SHA-256 digest of a snapshot's JSON header.
type Checksum [ChecksumSize]byte

// Sum returns the checksum of body.
func Sum(body []byte) Checksum {
	return sha256.Sum256(body)
}

// Verify returns ErrChecksumMismatch unless body hashes to c.
func (c Checksum) Verify(body []byte) error {
	if Sum(body) != c {
		return ErrChecksumMismatch
	}
	return nil
}
