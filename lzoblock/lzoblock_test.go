package lzoblock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sections := []LabeledSection{
		{Label: "geometry", Data: bytes.Repeat([]byte{0xAB}, 512)},
		{Label: "geometry", Data: []byte("small section")},
		{Label: "collision", Data: bytes.Repeat([]byte{0xCD, 0xEF}, 300)},
	}

	blocks, err := Encode(sections, 0x20000, 0x120)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)

	headers := make([]Header, len(blocks))
	payloads := make([][]byte, len(blocks))
	for i, b := range blocks {
		headers[i] = b.Header
		payloads[i] = b.Payload
	}

	sizes := make([]int, 0, len(sections))
	for _, s := range sections {
		padded := len(s.Data)
		if r := padded % 32; r != 0 {
			padded += 32 - r
		}
		sizes = append(sizes, padded)
	}

	decoded, err := Decode(headers, payloads, sizes)
	require.NoError(t, err)
	require.Len(t, decoded, len(sections))
	for i, s := range sections {
		assert.Equal(t, s.Data, decoded[i][:len(s.Data)])
	}
}

func TestEncodeForcesBoundaryOnScriptLabels(t *testing.T) {
	sections := []LabeledSection{
		{Label: "geometry", Data: []byte("geo")},
		{Label: "script_layers", Data: []byte("script")},
		{Label: "collision", Data: []byte("collision")},
	}
	blocks, err := Encode(sections, 0x20000, 0x120)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(blocks), 3)
}

func TestEncodeSplitsOnSizeLimit(t *testing.T) {
	sections := []LabeledSection{
		{Label: "", Data: bytes.Repeat([]byte{1}, 100)},
		{Label: "", Data: bytes.Repeat([]byte{2}, 100)},
	}
	blocks, err := Encode(sections, 150, 0x120)
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestBlockCompressionInvariant(t *testing.T) {
	sections := []LabeledSection{
		{Label: "", Data: bytes.Repeat([]byte{0x42}, 4096)},
	}
	blocks, err := Encode(sections, 0x20000, 0x120)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	h := blocks[0].Header
	if h.CompressedSize != 0 {
		pad := 0
		if r := int(h.CompressedSize) % 32; r != 0 {
			pad = 32 - r
		}
		assert.Less(t, int(h.CompressedSize)+pad, int(h.UncompressedSize))
	}
}

func TestDecodeHeaderPayloadMismatch(t *testing.T) {
	_, err := Decode([]Header{{}}, nil, nil)
	assert.Error(t, err)
}

func TestOnDiscSizeRaw(t *testing.T) {
	h := Header{UncompressedSize: 64, CompressedSize: 0}
	assert.Equal(t, 64, h.OnDiscSize())
}

func TestOnDiscSizeCompressedPadded(t *testing.T) {
	h := Header{CompressedSize: 50}
	assert.Equal(t, 64, h.OnDiscSize())
}
