// Package audio implements §4.I: the audio-group dependency index. It
// scans every known asset for the game's unique ATBL and its AGSC sound
// groups, builds the sound-id-to-AGSC lookup the dependency engine needs
// when a script instance references a sound effect by numeric id rather
// than by asset id, and flags AGSCs from the "always loaded" bundle so
// they can be excluded from the MLVL-level dependency list.
package audio

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/axiodl/retropak/formats/dgrp"
	"github.com/axiodl/retropak/retroid"
)

var (
	agscType = retroid.ParseAssetType("AGSC")
	atblType = retroid.ParseAssetType("ATBL")
)

// nullDefineID is the first of the two sentinel "no define" values the
// ATBL table may carry (the other is -1, read the same way a uint16
// 0xFFFF would be since ATBL entries are unsigned here).
const nullDefineID = 0xFFFF

// AssetSource is the subset of the asset manager the audio index needs.
type AssetSource interface {
	AllAssetIDs() []retroid.AssetID
	GetAssetType(id retroid.AssetID) (retroid.AssetType, error)
	GetRawAsset(id retroid.AssetID) ([]byte, error)
}

// Index is the built sound_id -> agsc_id table for one session.
type Index struct {
	game            retroid.Game
	soundIDToAGSC   map[uint32]retroid.AssetID
	alwaysLoaded    *dgrp.Dgrp
	hasAlwaysLoaded bool
}

// Build scans source for the game's ATBL and AGSC resources and assembles
// the index. Only Echoes ships an audio table in scope here; other games
// return an empty, always-miss index.
func Build(game retroid.Game, source AssetSource) (*Index, error) {
	idx := &Index{game: game, soundIDToAGSC: make(map[uint32]retroid.AssetID)}
	if game != retroid.Echoes {
		return idx, nil
	}

	var atblID retroid.AssetID
	foundATBL := false
	defineIDToAGSC := make(map[uint16]retroid.AssetID)

	for _, id := range source.AllAssetIDs() {
		t, err := source.GetAssetType(id)
		if err != nil {
			continue
		}
		switch t {
		case atblType:
			if foundATBL {
				return nil, errors.New("audio: multiple ATBL resources found")
			}
			atblID = id
			foundATBL = true
		case agscType:
			data, err := source.GetRawAsset(id)
			if err != nil {
				return nil, errors.Wrapf(err, "audio: read AGSC %s", id)
			}
			defines, err := parseAGSCDefineIDs(data)
			if err != nil {
				return nil, errors.Wrapf(err, "audio: parse AGSC %s", id)
			}
			for _, d := range defines {
				defineIDToAGSC[d] = id
			}
		}
	}

	if foundATBL {
		atblData, err := source.GetRawAsset(atblID)
		if err != nil {
			return nil, errors.Wrapf(err, "audio: read ATBL %s", atblID)
		}
		defineIDs, err := parseATBL(atblData)
		if err != nil {
			return nil, errors.Wrap(err, "audio: parse ATBL")
		}
		for soundID, defineID := range defineIDs {
			if defineID == nullDefineID {
				continue
			}
			if agscID, ok := defineIDToAGSC[defineID]; ok {
				idx.soundIDToAGSC[uint32(soundID)] = agscID
			}
		}
	}

	if alwaysID, ok := game.AlwaysLoadedAudioGroupDGRP(); ok {
		if raw, err := source.GetRawAsset(alwaysID); err == nil {
			if parsed, err := dgrp.Parse(game, raw); err == nil {
				idx.alwaysLoaded = parsed.(*dgrp.Dgrp)
				idx.hasAlwaysLoaded = true
			}
		}
	}

	return idx, nil
}

// GetAudioGroupDependency returns the AGSC dependency for a sound id, with
// exclude_from_mlvl set when that AGSC is part of the always-loaded
// bundle, per §4.I.
func (idx *Index) GetAudioGroupDependency(soundID uint32) (retroid.Dependency, bool) {
	agscID, ok := idx.soundIDToAGSC[soundID]
	if !ok {
		return retroid.Dependency{}, false
	}
	d := retroid.NewDependency(agscType, agscID)
	if idx.hasAlwaysLoaded && idx.alwaysLoaded.Contains(retroid.NewDependency(agscType, agscID)) {
		d.ExcludeFromMLVL = true
	}
	return d, true
}

// parseAGSCDefineIDs reads an AGSC body's define-id table: a 32-bit count
// followed by that many 16-bit define ids, at the very start of the
// resource. Full AGSC sample/bank parsing is out of scope; this is the
// one piece §4.I needs.
func parseAGSCDefineIDs(data []byte) ([]uint16, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read define count")
	}
	ids := make([]uint16, count)
	for i := range ids {
		if err := binary.Read(r, binary.BigEndian, &ids[i]); err != nil {
			return nil, errors.Wrapf(err, "read define id %d", i)
		}
	}
	return ids, nil
}

// parseATBL reads the ATBL resource: a 32-bit count followed by that many
// 16-bit define ids, where position in the array is the sound id.
func parseATBL(data []byte) ([]uint16, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read sound count")
	}
	defineIDs := make([]uint16, count)
	for i := range defineIDs {
		if err := binary.Read(r, binary.BigEndian, &defineIDs[i]); err != nil {
			return nil, errors.Wrapf(err, "read sound %d define id", i)
		}
	}
	return defineIDs, nil
}
