// Package dgrp implements the DGRP ("dependency group") format: a flat
// list of (type, id) references with no other structure. It backs §4.I's
// "always loaded" audio-group bundle lookup, and stands in generally for
// any resource whose entire content is a dependency list.
package dgrp

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/retroid"
)

// Dgrp is a parsed dependency group: an ordered, flat list of typed asset
// references.
type Dgrp struct {
	DirectDependencies []retroid.Dependency
}

// Parse decodes a DGRP resource body: a 32-bit count followed by that many
// (4-byte type tag, asset id) pairs.
func Parse(game retroid.Game, data []byte) (any, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "dgrp: read count")
	}

	d := &Dgrp{DirectDependencies: make([]retroid.Dependency, 0, count)}
	for i := uint32(0); i < count; i++ {
		var tag [4]byte
		if _, err := r.Read(tag[:]); err != nil {
			return nil, errors.Wrapf(err, "dgrp: read type %d", i)
		}
		id, err := readAssetID(r, game)
		if err != nil {
			return nil, errors.Wrapf(err, "dgrp: read id %d", i)
		}
		d.DirectDependencies = append(d.DirectDependencies, retroid.NewDependency(retroid.AssetType(tag), id))
	}
	return d, nil
}

// Build re-encodes a Dgrp back into bytes.
func Build(game retroid.Game, value any) ([]byte, error) {
	d, ok := value.(*Dgrp)
	if !ok {
		return nil, errors.Errorf("dgrp: build expected *Dgrp, got %T", value)
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(len(d.DirectDependencies)))
	for _, dep := range d.DirectDependencies {
		buf.Write(dep.Type[:])
		if err := writeAssetID(buf, game, dep.ID); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func HasDependencies(game retroid.Game) bool {
	return true
}

// DependenciesFor implements registry.DependencySource.
func (d *Dgrp) DependenciesFor() []retroid.Dependency {
	return d.DirectDependencies
}

// Contains reports whether dep appears verbatim among the group's direct
// dependencies, used by §4.I to decide the exclude_from_mlvl flag for
// always-loaded audio groups.
func (d *Dgrp) Contains(dep retroid.Dependency) bool {
	for _, have := range d.DirectDependencies {
		if have.Type == dep.Type && have.ID == dep.ID {
			return true
		}
	}
	return false
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
