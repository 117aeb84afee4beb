package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

// sampleHeader describes v2 = v0 * v1 after a backward pass from v2.
func sampleHeader() Header {
	return Header{
		FormatVersion:  FormatVersion,
		AdgraphVersion: "test",
		SessionID:      "3c1f5a1e-8f0b-4d5e-9a51-6f3e2b1c0d9a",
		NamePrefix:     "v",
		Nodes: []NodeRecord{
			{Name: "v0", Value: 2, Adjoint: intPtr(5), Pending: []int{5}},
			{Name: "v1", Value: 5, Adjoint: intPtr(4), Pending: []int{4}},
			{Name: "v2", Op: "mul", Inputs: []int{0, 1}, Value: 10, Adjoint: intPtr(3), Pending: []int{3}},
			{Name: "v3", Value: 1},
			{Name: "v4", Op: "mul", Inputs: []int{3, 0}},
			{Name: "v5", Op: "mul", Inputs: []int{3, 1}},
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	h := sampleHeader()
	h.Metadata = map[string]string{"source": "test"}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h))

	raw := buf.Bytes()
	assert.Equal(t, MagicBytes, string(raw[0:4]))
	assert.Equal(t, uint32(FormatVersion), binary.LittleEndian.Uint32(raw[4:8]))
	flags := binary.LittleEndian.Uint32(raw[8:12])
	assert.Equal(t, FlagHasAdjoints|FlagHasPending|FlagHasMetadata, flags)

	got, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, h.SessionID, got.SessionID)
	assert.Equal(t, h.Nodes, got.Nodes)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.adg")
	require.NoError(t, WriteFile(path, sampleHeader()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 6)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.adg"))
	assert.Error(t, err)
}

func TestRead_InvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleHeader()))
	raw := buf.Bytes()
	copy(raw[0:4], "BORN")

	_, err := Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestRead_UnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleHeader()))
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[4:8], 9)

	_, err := Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestRead_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleHeader()))
	raw := buf.Bytes()

	// Corrupt one byte of the JSON header.
	idx := bytes.Index(raw[FixedHeaderSize:], []byte(`"v1"`))
	require.Positive(t, idx)
	raw[FixedHeaderSize+idx+2] = '7'

	_, err := Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestRead_HeaderTooLarge(t *testing.T) {
	raw := make([]byte, FixedHeaderSize)
	copy(raw, MagicBytes)
	binary.LittleEndian.PutUint32(raw[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(raw[16:24], MaxHeaderSize+1)

	_, err := Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestRead_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleHeader()))
	raw := buf.Bytes()

	_, err := Read(bytes.NewReader(raw[:FixedHeaderSize+10]))
	assert.Error(t, err)

	_, err = Read(bytes.NewReader(raw[:10]))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(h *Header)
		wantType string
	}{
		{"forward reference", func(h *Header) { h.Nodes[2].Inputs = []int{0, 4} }, "forward_reference"},
		{"self reference", func(h *Header) { h.Nodes[2].Inputs = []int{0, 2} }, "forward_reference"},
		{"bad arity", func(h *Header) { h.Nodes[2].Inputs = []int{0} }, "bad_arity"},
		{"leaf with inputs", func(h *Header) { h.Nodes[1].Inputs = []int{0} }, "bad_arity"},
		{"unknown op", func(h *Header) { h.Nodes[2].Op = "matmul" }, "unknown_op"},
		{"duplicate name", func(h *Header) { h.Nodes[3].Name = "v0" }, "unexpected_name"},
		{"name ahead of index", func(h *Header) { h.Nodes[0].Name = "v2" }, "unexpected_name"},
		{"foreign prefix", func(h *Header) { h.Nodes[4].Name = "x4" }, "unexpected_name"},
		{"empty prefix", func(h *Header) { h.NamePrefix = "" }, "invalid_name"},
		{"empty name", func(h *Header) { h.Nodes[3].Name = "" }, "invalid_name"},
		{"adjoint out of range", func(h *Header) { h.Nodes[0].Adjoint = intPtr(6) }, "out_of_bounds"},
		{"pending out of range", func(h *Header) { h.Nodes[0].Pending = []int{-1} }, "out_of_bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := sampleHeader()
			tt.mutate(&h)

			err := Validate(h)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantType, verr.Type)
			assert.NotEmpty(t, verr.Error())
		})
	}

	require.NoError(t, Validate(sampleHeader()))

	h := sampleHeader()
	h.FormatVersion = 2
	assert.ErrorIs(t, Validate(h), ErrUnsupportedVersion)
}

func TestWrite_RejectsInvalid(t *testing.T) {
	h := sampleHeader()
	h.Nodes[2].Op = "relu"

	var buf bytes.Buffer
	assert.Error(t, Write(&buf, h))
	assert.Zero(t, buf.Len())
}

func TestFloat_JSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, `1.5`},
		{-2, `-2`},
		{1e21, `1e+21`},
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"+Inf"`},
		{math.Inf(-1), `"-Inf"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(Float(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))

		var back Float
		require.NoError(t, json.Unmarshal(data, &back))
		if math.IsNaN(tt.in) {
			assert.True(t, math.IsNaN(float64(back)))
		} else {
			assert.Equal(t, tt.in, float64(back))
		}
	}

	var f Float
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{Type: "bad_arity", Node: "v2", Index: 2, Details: "x"}
	assert.Equal(t, `bad_arity: node "v2" (#2): x`, e.Error())

	e = &ValidationError{Type: "too_many", Details: "y"}
	assert.Equal(t, "too_many: y", e.Error())
}

func TestChecksum(t *testing.T) {
	body := []byte(`{"nodes":[]}`)
	c := Sum(body)

	require.NoError(t, c.Verify(body))
	assert.ErrorIs(t, c.Verify([]byte(`{"nodes":[1]}`)), ErrChecksumMismatch)

	var zero Checksum
	assert.ErrorIs(t, zero.Verify(body), ErrChecksumMismatch)
}
