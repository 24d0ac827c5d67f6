// Package mapw implements the MAPW format (§6): a world map overview
// listing the per-area MAPA resources it renders. It is the canonical
// "simple format" worked example named in spec.md §6, ported from
// original_source/retro_data_structures/formats/mapw.py.
package mapw

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/retroid"
)

const (
	magic   uint32 = 0xDEADF00D
	version uint32 = 1
)

var mapaType = retroid.ParseAssetType("MAPA")

// ErrBadMagic is returned by Parse when the leading magic/version words do
// not match the MAPW format.
var ErrBadMagic = errors.New("mapw: bad magic or version")

// Mapw is a parsed MAPW resource: a flat, ordered list of MAPA asset ids,
// one per area shown on the map.
type Mapw struct {
	AreaMap []retroid.AssetID
}

// Parse decodes a MAPW resource body. game determines whether area ids are
// read as 32- or 64-bit.
func Parse(game retroid.Game, data []byte) (any, error) {
	r := bytes.NewReader(data)

	var gotMagic, gotVersion uint32
	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return nil, errors.Wrap(err, "mapw: read magic")
	}
	if err := binary.Read(r, binary.BigEndian, &gotVersion); err != nil {
		return nil, errors.Wrap(err, "mapw: read version")
	}
	if gotMagic != magic || gotVersion != version {
		return nil, ErrBadMagic
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "mapw: read area count")
	}

	m := &Mapw{AreaMap: make([]retroid.AssetID, 0, count)}
	for i := uint32(0); i < count; i++ {
		id, err := readAssetID(r, game)
		if err != nil {
			return nil, errors.Wrapf(err, "mapw: read area id %d", i)
		}
		m.AreaMap = append(m.AreaMap, id)
	}
	return m, nil
}

// Build re-encodes a Mapw back into bytes.
func Build(game retroid.Game, value any) ([]byte, error) {
	m, ok := value.(*Mapw)
	if !ok {
		return nil, errors.Errorf("mapw: build expected *Mapw, got %T", value)
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, magic)
	binary.Write(buf, binary.BigEndian, version)
	binary.Write(buf, binary.BigEndian, uint32(len(m.AreaMap)))
	for _, id := range m.AreaMap {
		if err := writeAssetID(buf, game, id); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// HasDependencies is always true for MAPW: it exists purely to list MAPA
// dependencies.
func HasDependencies(game retroid.Game) bool {
	return true
}

// DependenciesFor implements registry.DependencySource: every area map
// entry is a dependency on the corresponding MAPA, yielded in file order
// per spec.md S3.
func (m *Mapw) DependenciesFor() []retroid.Dependency {
	deps := make([]retroid.Dependency, 0, len(m.AreaMap))
	for _, id := range m.AreaMap {
		deps = append(deps, retroid.NewDependency(mapaType, id))
	}
	return deps
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
