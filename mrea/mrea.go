// Package mrea implements §4.E: the area-file section splitter. An MREA is
// a monolithic blob partitioned into named section groups whose order and
// presence depend on game version; this package turns that blob into a
// typed header plus a lazy, labeled sequence of byte slices, and rebuilds
// it on save by driving the compressed-block layer in package lzoblock.
package mrea

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/internal/align"
	"github.com/axiodl/retropak/lzoblock"
	"github.com/axiodl/retropak/retroid"
)

const headerMagic uint32 = 0xDEADBEEF

// Version is the MREA version word, one value per game/patch revision.
type Version uint32

const (
	VersionPrime1        Version = 0x0F
	VersionPrime1Old     Version = 0x0C
	VersionEchoesDemo    Version = 0x15
	VersionEchoes        Version = 0x19
	VersionCorruptionE3  Version = 0x1D
	VersionCorruption    Version = 0x1E
	VersionCorruptionTri Version = 0x20
)

func (v Version) valid() bool {
	switch v {
	case VersionPrime1, VersionPrime1Old, VersionEchoesDemo, VersionEchoes,
		VersionCorruptionE3, VersionCorruption, VersionCorruptionTri:
		return true
	}
	return false
}

// usesCompressedBlocks reports whether this version stores its data
// sections behind the §4.D compressed-block layer (Echoes onward) rather
// than as one raw run (Prime 1).
func (v Version) usesCompressedBlocks() bool {
	return v >= VersionEchoesDemo
}

// Label identifies one of the recognized MREA section groups. Groups
// absent from a given version are left nil in Area.Sections.
type Label string

const (
	LabelGeometry              Label = "geometry"
	LabelScriptLayers          Label = "script_layers"
	LabelGeneratedScriptObjs   Label = "generated_script_objects"
	LabelCollision             Label = "collision"
	LabelLights                Label = "lights"
	LabelVisibilityTree        Label = "visibility_tree"
	LabelPath                  Label = "path"
	LabelPortalArea            Label = "portal_area"
	LabelStaticGeometryMap     Label = "static_geometry_map"
	LabelAreaOctree            Label = "area_octree"
	LabelUnknown1              Label = "unknown_1"
	LabelUnknown2              Label = "unknown_2"
)

// declaredOrder is the fixed order section-group offsets are declared in
// the header, used both to read the offset table and to rebuild it.
var declaredOrder = []Label{
	LabelGeometry,
	LabelScriptLayers,
	LabelGeneratedScriptObjs,
	LabelCollision,
	LabelUnknown1,
	LabelLights,
	LabelVisibilityTree,
	LabelPath,
	LabelAreaOctree,
	LabelPortalArea,
	LabelStaticGeometryMap,
	LabelUnknown2,
}

// Header is the fixed-size MREA prelude: format version, the area's
// transform and model count, and where each section group begins within
// the flat data-section list (by section index, not byte offset).
type Header struct {
	Version         Version
	Transform       [12]float32
	WorldModelCount uint32
	GroupOffsets    map[Label]uint32
	DataSectionCount uint32
	BlockCount      uint32
}

// Area is a parsed MREA: its header plus, per recognized label, the raw
// byte slices belonging to that section group in file order. A label
// absent from this version's layout is left as a nil slice.
type Area struct {
	Header   Header
	Sections map[Label][][]byte
}

func newArea(h Header) *Area {
	return &Area{Header: h, Sections: make(map[Label][][]byte, len(declaredOrder))}
}

// Parse decodes a complete MREA resource body.
func Parse(game retroid.Game, data []byte) (any, error) {
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "mrea: read magic")
	}
	if magic != headerMagic {
		return nil, errors.Errorf("mrea: bad magic %#x", magic)
	}
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, errors.Wrap(err, "mrea: read version")
	}
	v := Version(version)
	if !v.valid() {
		return nil, errors.Errorf("mrea: unrecognized version %#x", version)
	}

	h := Header{Version: v, GroupOffsets: make(map[Label]uint32, len(declaredOrder))}
	if err := binary.Read(r, binary.BigEndian, &h.Transform); err != nil {
		return nil, errors.Wrap(err, "mrea: read transform")
	}
	if err := binary.Read(r, binary.BigEndian, &h.WorldModelCount); err != nil {
		return nil, errors.Wrap(err, "mrea: read world model count")
	}
	if err := binary.Read(r, binary.BigEndian, &h.DataSectionCount); err != nil {
		return nil, errors.Wrap(err, "mrea: read data section count")
	}
	if v.usesCompressedBlocks() {
		if err := binary.Read(r, binary.BigEndian, &h.BlockCount); err != nil {
			return nil, errors.Wrap(err, "mrea: read block count")
		}
	}

	prev := uint32(0)
	for _, label := range declaredOrder {
		var off uint32
		if err := binary.Read(r, binary.BigEndian, &off); err != nil {
			return nil, errors.Wrapf(err, "mrea: read group offset %s", label)
		}
		if off == 0xFFFFFFFF {
			continue
		}
		if off < prev {
			return nil, errors.Errorf("mrea: group offsets not monotone at %s", label)
		}
		h.GroupOffsets[label] = off
		prev = off
	}

	sectionSizes := make([]int, h.DataSectionCount)
	for i := range sectionSizes {
		var sz uint32
		if err := binary.Read(r, binary.BigEndian, &sz); err != nil {
			return nil, errors.Wrapf(err, "mrea: read section size %d", i)
		}
		sectionSizes[i] = int(sz)
	}

	headerEnd := len(data) - r.Len()
	headerEnd = align.Up(headerEnd, 32)
	body := data[headerEnd:]

	var flatSections [][]byte
	if v.usesCompressedBlocks() {
		flat, err := decodeBlocks(body, int(h.BlockCount), sectionSizes)
		if err != nil {
			return nil, errors.Wrap(err, "mrea: decode compressed blocks")
		}
		flatSections = flat
	} else {
		cursor := 0
		flatSections = make([][]byte, len(sectionSizes))
		for i, sz := range sectionSizes {
			if cursor+sz > len(body) {
				return nil, errors.Errorf("mrea: raw section %d overruns body", i)
			}
			flatSections[i] = body[cursor : cursor+sz]
			cursor += sz
		}
	}

	area := newArea(h)
	if err := area.partition(flatSections); err != nil {
		return nil, err
	}
	return area, nil
}

// partition splits the flat section list into labeled groups using the
// header's per-label starting offsets, sorted and walked pairwise.
func (a *Area) partition(flat [][]byte) error {
	type entry struct {
		label Label
		start uint32
	}
	var entries []entry
	for _, label := range declaredOrder {
		if off, ok := a.Header.GroupOffsets[label]; ok {
			entries = append(entries, entry{label, off})
		}
	}
	for i, e := range entries {
		end := uint32(len(flat))
		if i+1 < len(entries) {
			end = entries[i+1].start
		}
		if end > uint32(len(flat)) || e.start > end {
			return errors.Errorf("mrea: group %s range [%d,%d) out of bounds (%d sections)", e.label, e.start, end, len(flat))
		}
		a.Sections[e.label] = flat[e.start:end]
	}
	return nil
}

func decodeBlocks(body []byte, blockCount int, sectionSizes []int) ([][]byte, error) {
	r := bytes.NewReader(body)
	headers := make([]lzoblock.Header, blockCount)
	for i := range headers {
		if err := binary.Read(r, binary.BigEndian, &headers[i].BufferSize); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &headers[i].UncompressedSize); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &headers[i].CompressedSize); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &headers[i].SectionCount); err != nil {
			return nil, err
		}
	}

	cursor := align.Up(len(body)-r.Len(), 32)
	payloads := make([][]byte, blockCount)
	for i, h := range headers {
		size := h.OnDiscSize()
		if cursor+size > len(body) {
			return nil, errors.New("mrea: compressed block payload overruns body")
		}
		payloads[i] = body[cursor : cursor+size]
		cursor = align.Up(cursor+size, 32)
	}

	return lzoblock.Decode(headers, payloads, sectionSizes)
}

// Build re-serializes the area: header, offset table, section-size array,
// then the data sections (raw or compressed-block-framed per version).
func Build(game retroid.Game, value any) ([]byte, error) {
	a, ok := value.(*Area)
	if !ok {
		return nil, errors.Errorf("mrea: build expected *Area, got %T", value)
	}
	return a.build()
}

func (a *Area) build() ([]byte, error) {
	var flat [][]byte
	offsets := make(map[Label]uint32, len(declaredOrder))
	var labeled []lzoblock.LabeledSection
	for _, label := range declaredOrder {
		sections, ok := a.Sections[label]
		if !ok {
			continue
		}
		offsets[label] = uint32(len(flat))
		for _, s := range sections {
			flat = append(flat, s)
			labeled = append(labeled, lzoblock.LabeledSection{Label: string(label), Data: s})
		}
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, headerMagic)
	binary.Write(buf, binary.BigEndian, uint32(a.Header.Version))
	binary.Write(buf, binary.BigEndian, a.Header.Transform)
	binary.Write(buf, binary.BigEndian, a.Header.WorldModelCount)
	binary.Write(buf, binary.BigEndian, uint32(len(flat)))
	if a.Header.Version.usesCompressedBlocks() {
		binary.Write(buf, binary.BigEndian, uint32(0))
	}

	for _, label := range declaredOrder {
		if off, ok := offsets[label]; ok {
			binary.Write(buf, binary.BigEndian, off)
		} else {
			binary.Write(buf, binary.BigEndian, uint32(0xFFFFFFFF))
		}
	}
	for _, s := range flat {
		binary.Write(buf, binary.BigEndian, uint32(len(s)))
	}

	headerLen := align.Up(buf.Len(), 32)
	buf.Write(make([]byte, headerLen-buf.Len()))

	if !a.Header.Version.usesCompressedBlocks() {
		for _, s := range flat {
			buf.Write(s)
		}
		return buf.Bytes(), nil
	}

	blocks, err := lzoblock.Encode(labeled, 0x20000, 0x120)
	if err != nil {
		return nil, errors.Wrap(err, "mrea: encode compressed blocks")
	}

	blockCountOffset := blockCountHeaderOffset()
	out := buf.Bytes()
	binary.BigEndian.PutUint32(out[blockCountOffset:], uint32(len(blocks)))

	blockHeaders := new(bytes.Buffer)
	for _, b := range blocks {
		binary.Write(blockHeaders, binary.BigEndian, b.Header.BufferSize)
		binary.Write(blockHeaders, binary.BigEndian, b.Header.UncompressedSize)
		binary.Write(blockHeaders, binary.BigEndian, b.Header.CompressedSize)
		binary.Write(blockHeaders, binary.BigEndian, b.Header.SectionCount)
	}
	out = append(out, align.Pad(blockHeaders.Bytes(), 32)...)
	for _, b := range blocks {
		out = append(out, align.Pad(b.Payload, 32)...)
	}
	return out, nil
}

// blockCountHeaderOffset is the fixed byte offset of the block-count word
// within the header: magic, version, 12 transform floats, world model
// count, data section count.
func blockCountHeaderOffset() int {
	return 4 + 4 + 12*4 + 4 + 4
}

// HasDependencies is always false: an MREA's dependencies are surfaced
// through its script layers and non-layer dependency list (package
// scriptlayer), not as a self-contained registry.DependencySource.
func HasDependencies(game retroid.Game) bool {
	return false
}

// Geometry returns the raw geometry section group, decoding lazily is the
// caller's responsibility since geometry editing is out of scope; this
// just exposes the labeled byte slices.
func (a *Area) Geometry() [][]byte {
	return a.Sections[LabelGeometry]
}

// PortalAreaAssetID extracts the leading asset id from the portal_area
// section, if present; portal area linkage is recorded as a single id at
// the start of that section's first slice.
func (a *Area) PortalAreaAssetID(game retroid.Game) (retroid.AssetID, bool) {
	return leadingAssetID(a.Sections[LabelPortalArea], game)
}

// StaticGeometryMapAssetID extracts the leading asset id from the
// static_geometry_map section, if present.
func (a *Area) StaticGeometryMapAssetID(game retroid.Game) (retroid.AssetID, bool) {
	return leadingAssetID(a.Sections[LabelStaticGeometryMap], game)
}

// PathAssetID extracts the leading asset id from the path section, if
// present.
func (a *Area) PathAssetID(game retroid.Game) (retroid.AssetID, bool) {
	return leadingAssetID(a.Sections[LabelPath], game)
}

func leadingAssetID(sections [][]byte, game retroid.Game) (retroid.AssetID, bool) {
	if len(sections) == 0 || len(sections[0]) == 0 {
		return retroid.AssetID{}, false
	}
	r := bytes.NewReader(sections[0])
	if game.UsesAssetID64() {
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return retroid.AssetID{}, false
		}
		return retroid.NewAssetID(v), true
	}
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return retroid.AssetID{}, false
	}
	return retroid.NewAssetID(uint64(v)), true
}

// ScriptLayerSections returns the raw byte slices belonging to
// script_layers, in file order. Neither this package nor package
// scriptlayer splits them further; scriptlayer.NewLayer wraps the raw
// bytes of one layer as given by the caller.
func (a *Area) ScriptLayerSections() [][]byte {
	return a.Sections[LabelScriptLayers]
}

// GeneratedScriptObjectSections returns the raw generated_script_objects
// slices, the synthetic extra layer whose members carry their owning
// layer inside the instance id.
func (a *Area) GeneratedScriptObjectSections() [][]byte {
	return a.Sections[LabelGeneratedScriptObjs]
}
