// Package lzoblock implements §4.D: the compressed-block layer shared by
// PAK bodies (Prime 2/3 layout) and MREA data sections. All block framing
// is 32-byte aligned; actual LZO1X compression/decompression is delegated
// to github.com/rasky/go-lzo, since no package in the retrieved example
// corpus implements LZO.
package lzoblock

import (
	"bytes"

	lzo "github.com/rasky/go-lzo"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/internal/align"
)

// Header is one compressed-block header: the runtime buffer size to
// allocate, the block's uncompressed payload size, its compressed size on
// disc (0 means the block is stored raw), and how many data sections it
// contains.
type Header struct {
	BufferSize       uint32
	UncompressedSize uint32
	CompressedSize   uint32
	SectionCount     uint32
}

// OnDiscSize is the number of bytes this block's payload occupies on disc,
// 32-byte aligned: the compressed size if compressed, else the raw
// uncompressed size.
func (h Header) OnDiscSize() int {
	if h.CompressedSize == 0 {
		return int(h.UncompressedSize)
	}
	return int(h.CompressedSize) + align.PadLen(int(h.CompressedSize), 32)
}

// LabeledSection is one data section destined for the compressed-block
// layer, tagged with the MREA section-group label it belongs to so the
// encoder's script-boundary rule (§4.D rule 2) can fire. PAK callers that
// have no section grouping pass an empty label; since no label ever equals
// the two script-layer labels, the boundary rule simply never fires for
// them.
type LabeledSection struct {
	Label string
	Data  []byte
}

// Block is one encoded compressed block: its header plus the on-disc
// payload bytes (compressed, or the raw padded section data when
// compression didn't help).
type Block struct {
	Header  Header
	Payload []byte
}

// scriptLabels are the two MREA section groups that force a block
// boundary on entry and exit (§4.D rule 2).
var scriptLabels = map[string]bool{
	"script_layers":            true,
	"generated_script_objects": true,
}

// Decode reads the flat sequence of data sections out of a set of
// compressed blocks, given each block's header, its raw on-disc payload,
// and the precomputed per-section size array that tells the decoder how
// to re-split each block's decompressed bytes. Each section starts on a
// 32-byte boundary within its block, matching the padding Encode applies.
func Decode(headers []Header, payloads [][]byte, sectionSizes []int) ([][]byte, error) {
	if len(headers) != len(payloads) {
		return nil, errors.Errorf("lzoblock: %d headers but %d payloads", len(headers), len(payloads))
	}

	sections := make([][]byte, 0, len(sectionSizes))
	for i, h := range headers {
		var decompressed []byte
		if h.CompressedSize != 0 {
			d, err := lzo.Decompress1X(bytes.NewReader(payloads[i]), int(h.CompressedSize), int(h.UncompressedSize))
			if err != nil {
				return nil, errors.Wrapf(err, "lzoblock: decompress block %d", i)
			}
			decompressed = d
		} else {
			decompressed = payloads[i]
		}
		if uint32(len(decompressed)) != h.UncompressedSize {
			return nil, &SizeMismatchError{Expected: int(h.UncompressedSize), Actual: len(decompressed)}
		}

		offset := 0
		for s := 0; s < int(h.SectionCount); s++ {
			idx := len(sections)
			if idx >= len(sectionSizes) {
				return nil, errors.New("lzoblock: block references more sections than the size array provides")
			}
			size := sectionSizes[idx]
			if offset+size > len(decompressed) {
				return nil, errors.New("lzoblock: section size array overruns decompressed block")
			}
			sections = append(sections, decompressed[offset:offset+size])
			offset += align.Up(size, 32)
		}
	}
	return sections, nil
}

// SizeMismatchError mirrors the top-level retropak.SizeMismatchError
// without importing the root package (which imports this one), matching
// the "decompression sanity check" error surfaced at the API boundary
// per §6.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return errors.Errorf("lzoblock: expected %d bytes, got %d", e.Expected, e.Actual).Error()
}

// Encode groups sections into compressed blocks per §4.D's three rules,
// attempting LZO1X compression on each finished group and falling back to
// a raw (uncompressed) block when compression doesn't strictly shrink it.
//
// sizeLimit is the size rule's threshold (0x20000 by default, see
// config.Tunables.BlockSizeLimit); bufferBonus is added to a compressed
// block's BufferSize (0x120 by default).
func Encode(sections []LabeledSection, sizeLimit int, bufferBonus uint32) ([]Block, error) {
	var blocks []Block
	var group []LabeledSection
	groupSize := 0
	prevLabel := ""

	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		block, err := encodeGroup(group, groupSize, bufferBonus)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
		group = nil
		groupSize = 0
		return nil
	}

	for _, s := range sections {
		startNew := false
		switch {
		case groupSize > 0 && groupSize+len(s.Data) > sizeLimit:
			startNew = true
		case s.Label != "" && scriptLabels[s.Label]:
			startNew = true
		case prevLabel != "" && scriptLabels[prevLabel]:
			startNew = true
		}
		if startNew {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		group = append(group, s)
		groupSize += len(s.Data)
		prevLabel = s.Label
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func encodeGroup(group []LabeledSection, uncompressedSize int, bufferBonus uint32) (Block, error) {
	merged := make([]byte, 0, uncompressedSize)
	for _, s := range group {
		padded := align.Pad(s.Data, 32)
		merged = append(merged, padded...)
	}
	// Every section is padded to 32 bytes, so the block's uncompressed size
	// is the padded total rather than the sum of the raw section lengths.
	uncompressedSize = len(merged)

	header := Header{
		BufferSize:       uint32(uncompressedSize),
		UncompressedSize: uint32(uncompressedSize),
		CompressedSize:   0,
		SectionCount:     uint32(len(group)),
	}

	compressed, err := lzo.Compress1X(merged)
	if err != nil {
		return Block{}, errors.Wrap(err, "lzoblock: compress")
	}
	compressedPad := align.PadLen(len(compressed), 32)

	payload := merged
	if len(compressed)+compressedPad < uncompressedSize {
		header.CompressedSize = uint32(len(compressed))
		header.BufferSize += bufferBonus
		payload = compressed
	}

	return Block{Header: header, Payload: payload}, nil
}
