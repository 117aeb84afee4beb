package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Read decodes a .adg snapshot from r and validates it.
func Read(r io.Reader) (Header, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return Header{}, fmt.Errorf("failed to read fixed header: %w", err)
	}

	if string(fixedHeader[0:4]) != MagicBytes {
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidMagic, fixedHeader[0:4])
	}

	version := binary.LittleEndian.Uint32(fixedHeader[4:8])
	if version != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	if headerSize > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}

	var stored Checksum
	copy(stored[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Header{}, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := stored.Verify(headerJSON); err != nil {
		return Header{}, err
	}

	var h Header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return Header{}, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := Validate(h); err != nil {
		return Header{}, err
	}
	return h, nil
}

// ReadFile reads a .adg snapshot from path.
func ReadFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Read(bufio.NewReader(f))
}
