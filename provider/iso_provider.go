package provider

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// GameCube/Wii disc header and FST layout constants, matching the offsets
// documented in sargunv-screenscraper-go's lib/format/gamecube package.
const (
	discHeaderSize = 0x60

	wiiMagicOffset = 0x018
	gcMagicOffset  = 0x01C
	wiiMagicWord   = 0x5D1C9EA3
	gcMagicWord    = 0xC2339F3D

	dolOffsetOffset = 0x0420
	fstOffsetOffset = 0x0424
	fstSizeOffset   = 0x0428

	fstEntrySize = 12
)

// fstEntry is one 12-byte record of a GameCube File System Table: either a
// directory (isDir true, nextOffset is the index one past its last child)
// or a file (fileOffset/fileLength locate its data on disc).
type fstEntry struct {
	isDir       bool
	nameOffset  uint32
	parentIndex uint32 // for directories: parent dir index is unused here
	fileOffset  uint32
	fileLength  uint32
	nextOffset  uint32 // for directories: index of next sibling/end
}

// IsoProvider serves files out of a GameCube/Wii disc image's data
// partition, mirroring IsoFileProvider in asset_manager.py. Unlike the
// Python implementation (which delegates to the `nod` library), the FST is
// parsed directly here, grounded in the disc header layout documented in
// sargunv-screenscraper-go.
type IsoProvider struct {
	path      string
	f         *os.File
	dolOffset uint32

	// files maps a disc-relative path (forward-slash separated, no leading
	// slash) to its data region.
	files map[string]fstEntry
}

// OpenISO opens path as a GameCube/Wii disc image and parses its file
// system table. It returns an error if the file has neither the GameCube
// nor the Wii magic word, or if its FST is empty; these are plain errors
// from this package, not retropak.ErrInvalidImage.
func OpenISO(path string) (*IsoProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "provider: open %s", path)
	}

	p := &IsoProvider{path: path, f: f}
	if err := p.parse(); err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

func (p *IsoProvider) parse() error {
	header := make([]byte, discHeaderSize)
	if _, err := p.f.ReadAt(header, 0); err != nil {
		return errors.Wrapf(err, "provider: read disc header")
	}

	wiiMagic := binary.BigEndian.Uint32(header[wiiMagicOffset:])
	gcMagic := binary.BigEndian.Uint32(header[gcMagicOffset:])
	if wiiMagic != wiiMagicWord && gcMagic != gcMagicWord {
		return errors.New("provider: not a valid GameCube/Wii disc: no magic word found")
	}

	var fixed [12]byte
	if _, err := p.f.ReadAt(fixed[:], dolOffsetOffset); err != nil {
		return errors.Wrapf(err, "provider: read disc layout fields")
	}
	p.dolOffset = binary.BigEndian.Uint32(fixed[0:4])
	fstOffset := binary.BigEndian.Uint32(fixed[4:8])
	fstSize := binary.BigEndian.Uint32(fixed[8:12])
	if fstSize == 0 {
		return errors.New("provider: disc has no data partition (empty FST)")
	}

	fstData := make([]byte, fstSize)
	if _, err := p.f.ReadAt(fstData, int64(fstOffset)); err != nil {
		return errors.Wrapf(err, "provider: read FST")
	}

	entries, err := parseFST(fstData)
	if err != nil {
		return err
	}
	p.files = entries
	return nil
}

// parseFST decodes a GameCube File System Table into a flat map of
// disc-relative path to file entry. Directory entries are consumed to
// build the path prefixes but are not themselves exposed as files.
func parseFST(data []byte) (map[string]fstEntry, error) {
	if len(data) < fstEntrySize {
		return nil, errors.New("provider: FST too small")
	}
	root := data[0:fstEntrySize]
	if root[0] != 1 {
		return nil, errors.New("provider: FST root entry is not a directory")
	}
	numEntries := binary.BigEndian.Uint32(root[8:12])
	stringTableOffset := int(numEntries) * fstEntrySize

	readEntry := func(i int) (fstEntry, error) {
		off := i * fstEntrySize
		if off+fstEntrySize > len(data) {
			return fstEntry{}, errors.New("provider: FST entry out of range")
		}
		raw := data[off : off+fstEntrySize]
		e := fstEntry{
			isDir:      raw[0] != 0,
			nameOffset: binary.BigEndian.Uint32([]byte{0, raw[1], raw[2], raw[3]}),
		}
		if e.isDir {
			e.parentIndex = binary.BigEndian.Uint32(raw[4:8])
			e.nextOffset = binary.BigEndian.Uint32(raw[8:12])
		} else {
			e.fileOffset = binary.BigEndian.Uint32(raw[4:8])
			e.fileLength = binary.BigEndian.Uint32(raw[8:12])
		}
		return e, nil
	}

	readName := func(nameOffset uint32) string {
		start := stringTableOffset + int(nameOffset)
		if start >= len(data) {
			return ""
		}
		end := start
		for end < len(data) && data[end] != 0 {
			end++
		}
		return string(data[start:end])
	}

	files := make(map[string]fstEntry)

	// Each frame's end is the index one past the last descendant of that
	// directory; the stack of frames gives the current path prefix while
	// walking entries 1..numEntries-1 in order.
	type frame struct {
		end  uint32
		path string
	}
	stack := []frame{{end: numEntries, path: ""}}

	for i := uint32(1); i < numEntries; i++ {
		for len(stack) > 1 && i >= stack[len(stack)-1].end {
			stack = stack[:len(stack)-1]
		}
		prefix := stack[len(stack)-1].path

		entry, err := readEntry(int(i))
		if err != nil {
			return nil, err
		}
		name := readName(entry.nameOffset)
		fullPath := name
		if prefix != "" {
			fullPath = prefix + "/" + name
		}

		if entry.isDir {
			stack = append(stack, frame{end: entry.nextOffset, path: fullPath})
			continue
		}
		files[fullPath] = entry
	}

	return files, nil
}

func (p *IsoProvider) IsFile(name string) bool {
	_, ok := p.files[strings.TrimPrefix(name, "/")]
	return ok
}

func (p *IsoProvider) Rglob(pattern string) ([]string, error) {
	var matches []string
	for name := range p.files {
		if matchGlob(pattern, name) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

func (p *IsoProvider) OpenBinary(name string) (io.ReadCloser, error) {
	entry, ok := p.files[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil, errors.Errorf("provider: %s not found in disc image", name)
	}
	return io.NopCloser(io.NewSectionReader(p.f, int64(entry.fileOffset), int64(entry.fileLength))), nil
}

func (p *IsoProvider) GetDOL() ([]byte, error) {
	// The DOL's length isn't recorded directly in the disc header; derive
	// it from the DOL's own section table, which lists every text/data
	// section's offset and size. The largest offset+size for either text
	// or data sections is the end of the file.
	var head [0x100]byte
	if _, err := p.f.ReadAt(head[:], int64(p.dolOffset)); err != nil {
		return nil, errors.Wrapf(err, "provider: read DOL header")
	}

	var end uint32
	// 7 text sections + 11 data sections. The text and data offset tables
	// sit back to back at 0x00 and 0x1C, the text and data size tables at
	// 0x90 and 0xAC, so one loop over 18 entries of each covers both.
	offsets := make([]uint32, 18)
	sizes := make([]uint32, 18)
	for i := 0; i < 18; i++ {
		offsets[i] = binary.BigEndian.Uint32(head[i*4:])
		sizes[i] = binary.BigEndian.Uint32(head[0x90+i*4:])
		if offsets[i]+sizes[i] > end {
			end = offsets[i] + sizes[i]
		}
	}

	buf := make([]byte, end)
	if _, err := p.f.ReadAt(buf, int64(p.dolOffset)); err != nil {
		return nil, errors.Wrapf(err, "provider: read DOL body")
	}
	return buf, nil
}

func (p *IsoProvider) Close() error {
	return p.f.Close()
}
