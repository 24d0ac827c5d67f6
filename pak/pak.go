// Package pak implements §4.C: the PAK archive container. Two on-disc
// layouts are supported, selected by retroid.Game.UsesLZO: Prime 1 flags
// compression per resource entry, while Echoes/Corruption frame the whole
// body region through the compressed-block layer in package lzoblock.
//
// Header and table parsing follows the struct-at-a-time, big-endian style
// of icza-mpq's archive reader; the mutation methods (AddAsset,
// ReplaceAsset, RemoveAsset) exist so callers never hand-edit the table
// and body out of sync with each other.
package pak

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/internal/align"
	"github.com/axiodl/retropak/lzoblock"
	"github.com/axiodl/retropak/retroid"
)

const (
	versionMajor uint16 = 3
	versionMinor uint16 = 5

	entryAlignmentPrime1 = 16
	entryAlignmentLZO    = 32
)

// NamedResource is one entry of the PAK's named-resource table: a
// human-readable alias for an asset, independent of its position in the
// resource table.
type NamedResource struct {
	Type retroid.AssetType
	ID   retroid.AssetID
	Name string
}

// entry is one resource table row, tracked alongside its current body
// bytes so Build can re-serialize the archive without re-parsing it.
type entry struct {
	Type       retroid.AssetType
	ID         retroid.AssetID
	Compressed bool
	Data       []byte
}

// Pak is a parsed PAK archive: the named-resource table plus every
// resource's type, id, and body bytes, in on-disc order.
type Pak struct {
	Game    retroid.Game
	Named   []NamedResource
	order   []retroid.AssetID
	entries map[retroid.AssetID]*entry
}

// HeaderInfo is the result of HeaderParse: enough to answer "what assets
// does this PAK contain" without touching the (possibly compressed) body
// region.
type HeaderInfo struct {
	Named []NamedResource
	Types map[retroid.AssetID]retroid.AssetType
	Order []retroid.AssetID
}

func newPak(game retroid.Game) *Pak {
	return &Pak{Game: game, entries: make(map[retroid.AssetID]*entry)}
}

func readHeader(r *bytes.Reader) error {
	var major, minor uint16
	if err := binary.Read(r, binary.BigEndian, &major); err != nil {
		return errors.Wrap(err, "pak: read version major")
	}
	if err := binary.Read(r, binary.BigEndian, &minor); err != nil {
		return errors.Wrap(err, "pak: read version minor")
	}
	var unused uint32
	if err := binary.Read(r, binary.BigEndian, &unused); err != nil {
		return errors.Wrap(err, "pak: read unused word")
	}
	return nil
}

func readNamedTable(r *bytes.Reader, game retroid.Game) ([]NamedResource, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "pak: read named resource count")
	}
	named := make([]NamedResource, 0, count)
	for i := uint32(0); i < count; i++ {
		var tag [4]byte
		if _, err := r.Read(tag[:]); err != nil {
			return nil, errors.Wrapf(err, "pak: read named resource %d type", i)
		}
		id, err := readAssetID(r, game)
		if err != nil {
			return nil, errors.Wrapf(err, "pak: read named resource %d id", i)
		}
		var nameLen uint32
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return nil, errors.Wrapf(err, "pak: read named resource %d name length", i)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := r.Read(nameBytes); err != nil {
			return nil, errors.Wrapf(err, "pak: read named resource %d name", i)
		}
		named = append(named, NamedResource{Type: retroid.AssetType(tag), ID: id, Name: string(nameBytes)})
	}
	return named, nil
}

type tableRow struct {
	Type       retroid.AssetType
	ID         retroid.AssetID
	Compressed bool
	Offset     uint32
	Size       uint32
}

func readResourceTable(r *bytes.Reader, game retroid.Game) ([]tableRow, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "pak: read resource count")
	}
	rows := make([]tableRow, 0, count)
	for i := uint32(0); i < count; i++ {
		row := tableRow{}
		if !game.UsesLZO() {
			var compressedFlag uint32
			if err := binary.Read(r, binary.BigEndian, &compressedFlag); err != nil {
				return nil, errors.Wrapf(err, "pak: read resource %d compressed flag", i)
			}
			row.Compressed = compressedFlag != 0
		}
		var tag [4]byte
		if _, err := r.Read(tag[:]); err != nil {
			return nil, errors.Wrapf(err, "pak: read resource %d type", i)
		}
		row.Type = retroid.AssetType(tag)
		id, err := readAssetID(r, game)
		if err != nil {
			return nil, errors.Wrapf(err, "pak: read resource %d id", i)
		}
		row.ID = id
		if err := binary.Read(r, binary.BigEndian, &row.Size); err != nil {
			return nil, errors.Wrapf(err, "pak: read resource %d size", i)
		}
		if err := binary.Read(r, binary.BigEndian, &row.Offset); err != nil {
			return nil, errors.Wrapf(err, "pak: read resource %d offset", i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// HeaderParse reads the named-resource and resource tables only, without
// touching the body region, so callers that just need FindPaks-style
// lookups (§4.H) never pay for decompression.
func HeaderParse(game retroid.Game, data []byte) (*HeaderInfo, error) {
	r := bytes.NewReader(data)
	if err := readHeader(r); err != nil {
		return nil, err
	}
	named, err := readNamedTable(r, game)
	if err != nil {
		return nil, err
	}
	rows, err := readResourceTable(r, game)
	if err != nil {
		return nil, err
	}

	info := &HeaderInfo{
		Named: named,
		Types: make(map[retroid.AssetID]retroid.AssetType, len(rows)),
		Order: make([]retroid.AssetID, 0, len(rows)),
	}
	for _, row := range rows {
		info.Types[row.ID] = row.Type
		info.Order = append(info.Order, row.ID)
	}
	return info, nil
}

// Parse reads a complete PAK archive, decompressing every resource body
// eagerly (Prime 1's per-entry flag) or the shared compressed-block region
// (Echoes/Corruption), per §4.D.
func Parse(game retroid.Game, data []byte) (*Pak, error) {
	r := bytes.NewReader(data)
	if err := readHeader(r); err != nil {
		return nil, err
	}
	named, err := readNamedTable(r, game)
	if err != nil {
		return nil, err
	}
	rows, err := readResourceTable(r, game)
	if err != nil {
		return nil, err
	}

	bodyStart := len(data) - r.Len()
	bodyStart = align.Up(bodyStart, alignmentFor(game))
	body := data[bodyStart:]

	p := newPak(game)
	p.Named = named

	if game.UsesLZO() {
		blob, err := decodeBody(body)
		if err != nil {
			return nil, errors.Wrap(err, "pak: decode compressed body")
		}
		for _, row := range rows {
			if int(row.Offset)+int(row.Size) > len(blob) {
				return nil, errors.Errorf("pak: resource %s offset+size exceeds decompressed body", row.ID)
			}
			p.appendEntry(row.Type, row.ID, false, blob[row.Offset:row.Offset+row.Size])
		}
		return p, nil
	}

	for _, row := range rows {
		start := int(row.Offset)
		if start+int(row.Size) > len(body) {
			return nil, errors.Errorf("pak: resource %s offset+size exceeds body", row.ID)
		}
		raw := body[start : start+int(row.Size)]
		if !row.Compressed {
			p.appendEntry(row.Type, row.ID, false, raw)
			continue
		}
		if len(raw) < 4 {
			return nil, errors.Errorf("pak: resource %s marked compressed but too short for a size prefix", row.ID)
		}
		var decompressedSize uint32
		binary.Read(bytes.NewReader(raw[:4]), binary.BigEndian, &decompressedSize)
		decoded, err := lzoDecompressOne(raw[4:], int(decompressedSize))
		if err != nil {
			return nil, errors.Wrapf(err, "pak: decompress resource %s", row.ID)
		}
		p.appendEntry(row.Type, row.ID, true, decoded)
	}
	return p, nil
}

func (p *Pak) appendEntry(t retroid.AssetType, id retroid.AssetID, compressed bool, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.order = append(p.order, id)
	p.entries[id] = &entry{Type: t, ID: id, Compressed: compressed, Data: cp}
}

func alignmentFor(game retroid.Game) int {
	if game.UsesLZO() {
		return entryAlignmentLZO
	}
	return entryAlignmentPrime1
}

// GetAsset returns the raw resource bytes and type for id, if present.
func (p *Pak) GetAsset(id retroid.AssetID) (retroid.AssetType, []byte, bool) {
	e, ok := p.entries[id]
	if !ok {
		return retroid.AssetType{}, nil, false
	}
	return e.Type, e.Data, true
}

// AssetIDs returns every resource id in on-disc order.
func (p *Pak) AssetIDs() []retroid.AssetID {
	out := make([]retroid.AssetID, len(p.order))
	copy(out, p.order)
	return out
}

// AddAsset inserts a new resource at the end of the table. It returns
// ErrAssetAlreadyExists-shaped error if id is already present; callers
// should use ReplaceAsset for that case.
func (p *Pak) AddAsset(t retroid.AssetType, id retroid.AssetID, data []byte) error {
	if _, exists := p.entries[id]; exists {
		return errors.Errorf("pak: asset %s already exists", id)
	}
	p.appendEntry(t, id, false, data)
	return nil
}

// ReplaceAsset overwrites an existing resource's body in place, preserving
// its position in the table.
func (p *Pak) ReplaceAsset(id retroid.AssetID, data []byte) error {
	e, ok := p.entries[id]
	if !ok {
		return errors.Errorf("pak: asset %s not found", id)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	e.Data = cp
	e.Compressed = false
	return nil
}

// RemoveAsset deletes a resource from the table and from the named table.
func (p *Pak) RemoveAsset(id retroid.AssetID) {
	if _, ok := p.entries[id]; !ok {
		return
	}
	delete(p.entries, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	named := p.Named[:0]
	for _, n := range p.Named {
		if n.ID != id {
			named = append(named, n)
		}
	}
	p.Named = named
}

// Build re-serializes the archive: header, named-resource table, resource
// table, then the body region, compressed per the game's layout.
func (p *Pak) Build(sizeLimit int, bufferBonus uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, versionMajor)
	binary.Write(buf, binary.BigEndian, versionMinor)
	binary.Write(buf, binary.BigEndian, uint32(0))

	binary.Write(buf, binary.BigEndian, uint32(len(p.Named)))
	for _, n := range p.Named {
		buf.Write(n.Type[:])
		if err := writeAssetID(buf, p.Game, n.ID); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.BigEndian, uint32(len(n.Name)))
		buf.WriteString(n.Name)
	}

	if p.Game.UsesLZO() {
		return p.buildLZO(buf, sizeLimit, bufferBonus)
	}
	return p.buildPrime1(buf)
}

func (p *Pak) buildPrime1(buf *bytes.Buffer) ([]byte, error) {
	type placed struct {
		row  tableRow
		body []byte
	}
	placedEntries := make([]placed, 0, len(p.order))
	bodyBuf := new(bytes.Buffer)

	compressedFlags := make([]bool, 0, len(p.order))
	for _, id := range p.order {
		e := p.entries[id]
		onDisc := e.Data
		compressed := false
		if c, ok, err := lzoCompressOne(e.Data); err != nil {
			return nil, err
		} else if ok {
			onDisc = c
			compressed = true
		}
		row := tableRow{Type: e.Type, ID: id, Compressed: compressed}
		row.Offset = uint32(bodyBuf.Len())
		row.Size = uint32(len(onDisc))
		placedEntries = append(placedEntries, placed{row: row, body: onDisc})
		compressedFlags = append(compressedFlags, compressed)
		bodyBuf.Write(align.Pad(onDisc, entryAlignmentPrime1))
	}

	binary.Write(buf, binary.BigEndian, uint32(len(placedEntries)))
	for i, pe := range placedEntries {
		flag := uint32(0)
		if compressedFlags[i] {
			flag = 1
		}
		binary.Write(buf, binary.BigEndian, flag)
		buf.Write(pe.row.Type[:])
		if err := writeAssetID(buf, p.Game, pe.row.ID); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.BigEndian, pe.row.Size)
		binary.Write(buf, binary.BigEndian, pe.row.Offset)
	}

	headerLen := align.Up(buf.Len(), entryAlignmentPrime1)
	buf.Write(make([]byte, headerLen-buf.Len()))
	buf.Write(bodyBuf.Bytes())
	return buf.Bytes(), nil
}

func (p *Pak) buildLZO(buf *bytes.Buffer, sizeLimit int, bufferBonus uint32) ([]byte, error) {
	type placed struct {
		row tableRow
	}
	placedEntries := make([]placed, 0, len(p.order))
	blob := new(bytes.Buffer)

	for _, id := range p.order {
		e := p.entries[id]
		row := tableRow{Type: e.Type, ID: id}
		row.Offset = uint32(blob.Len())
		row.Size = uint32(len(e.Data))
		placedEntries = append(placedEntries, placed{row: row})
		blob.Write(e.Data)
	}

	binary.Write(buf, binary.BigEndian, uint32(len(placedEntries)))
	for _, pe := range placedEntries {
		buf.Write(pe.row.Type[:])
		if err := writeAssetID(buf, p.Game, pe.row.ID); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.BigEndian, pe.row.Size)
		binary.Write(buf, binary.BigEndian, pe.row.Offset)
	}

	headerLen := align.Up(buf.Len(), entryAlignmentLZO)
	buf.Write(make([]byte, headerLen-buf.Len()))

	blocks, err := encodeBody(blob.Bytes(), sizeLimit, bufferBonus)
	if err != nil {
		return nil, err
	}
	binary.Write(buf, binary.BigEndian, uint32(len(blocks)))
	for _, b := range blocks {
		binary.Write(buf, binary.BigEndian, b.Header.BufferSize)
		binary.Write(buf, binary.BigEndian, b.Header.UncompressedSize)
		binary.Write(buf, binary.BigEndian, b.Header.CompressedSize)
		binary.Write(buf, binary.BigEndian, b.Header.SectionCount)
	}
	for _, b := range blocks {
		padded := align.Pad(b.Payload, entryAlignmentLZO)
		buf.Write(padded)
	}
	return buf.Bytes(), nil
}

// decodeBody reconstructs a PAK's decompressed resource blob from the
// block-framed region written by a previous Build: a block count, that
// many headers, then each block's on-disc payload back to back.
func decodeBody(body []byte) ([]byte, error) {
	r := bytes.NewReader(body)
	var blockCount uint32
	if err := binary.Read(r, binary.BigEndian, &blockCount); err != nil {
		return nil, errors.Wrap(err, "pak: read block count")
	}
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

	payloadStart := len(body) - r.Len()
	payloadStart = align.Up(payloadStart, entryAlignmentLZO)
	cursor := payloadStart
	payloads := make([][]byte, blockCount)
	sectionSizes := make([]int, blockCount)
	for i, h := range headers {
		size := h.OnDiscSize()
		if cursor+size > len(body) {
			return nil, errors.New("pak: compressed block payload overruns body")
		}
		payloads[i] = body[cursor : cursor+size]
		sectionSizes[i] = int(h.UncompressedSize)
		cursor = align.Up(cursor+size, entryAlignmentLZO)
	}

	sections, err := lzoblock.Decode(headers, payloads, sectionSizes)
	if err != nil {
		return nil, err
	}
	blob := new(bytes.Buffer)
	for _, s := range sections {
		blob.Write(s)
	}
	return blob.Bytes(), nil
}

// encodeBody splits blob into sizeLimit-bounded chunks and hands them to
// the compressed-block encoder as a flat, unlabeled sequence: PAK bodies
// have no script-layer boundary rule, only the size rule applies.
func encodeBody(blob []byte, sizeLimit int, bufferBonus uint32) ([]lzoblock.Block, error) {
	var sections []lzoblock.LabeledSection
	for off := 0; off < len(blob); off += sizeLimit {
		end := off + sizeLimit
		if end > len(blob) {
			end = len(blob)
		}
		sections = append(sections, lzoblock.LabeledSection{Data: blob[off:end]})
	}
	if len(sections) == 0 {
		sections = append(sections, lzoblock.LabeledSection{Data: []byte{}})
	}
	return lzoblock.Encode(sections, sizeLimit, bufferBonus)
}

func readAssetID(r *bytes.Reader, game retroid.Game) (retroid.AssetID, error) {
	if game.UsesAssetID64() {
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return retroid.AssetID{}, err
		}
		return retroid.NewAssetID(v), nil
	}
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return retroid.AssetID{}, err
	}
	return retroid.NewAssetID(uint64(v)), nil
}

func writeAssetID(buf *bytes.Buffer, game retroid.Game, id retroid.AssetID) error {
	if game.UsesAssetID64() {
		return binary.Write(buf, binary.BigEndian, id.Numeric)
	}
	return binary.Write(buf, binary.BigEndian, uint32(id.Numeric))
}
