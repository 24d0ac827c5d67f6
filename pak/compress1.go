package pak

import (
	"bytes"

	lzo "github.com/rasky/go-lzo"

	"github.com/pkg/errors"
)

// lzoDecompressOne inflates a single Prime 1 per-resource LZO1X payload
// (the four-byte decompressed-size prefix has already been consumed by
// the caller).
func lzoDecompressOne(compressed []byte, decompressedSize int) ([]byte, error) {
	out, err := lzo.Decompress1X(bytes.NewReader(compressed), len(compressed), decompressedSize)
	if err != nil {
		return nil, err
	}
	if len(out) != decompressedSize {
		return nil, errors.Errorf("pak: decompressed %d bytes, expected %d", len(out), decompressedSize)
	}
	return out, nil
}

// lzoCompressOne produces a Prime 1 per-resource payload: the four-byte
// decompressed size followed by the LZO1X stream, only used when it is
// strictly smaller than storing the resource raw.
func lzoCompressOne(data []byte) (compressed []byte, ok bool, err error) {
	c, err := lzo.Compress1X(data)
	if err != nil {
		return nil, false, errors.Wrap(err, "pak: compress resource")
	}
	if len(c)+4 >= len(data) {
		return nil, false, nil
	}
	out := make([]byte, 4+len(c))
	out[0] = byte(len(data) >> 24)
	out[1] = byte(len(data) >> 16)
	out[2] = byte(len(data) >> 8)
	out[3] = byte(len(data))
	copy(out[4:], c)
	return out, true, nil
}
