package retroid

import "github.com/google/uuid"

// Game identifies which title's on-disc formats are in play. Every format
// and size rule in this module is parameterized by Game, following
// game_check.py's dispatch in the original implementation.
type Game int

const (
	Prime Game = iota + 1
	Echoes
	Corruption
	PrimeRemaster
)

func (g Game) String() string {
	switch g {
	case Prime:
		return "Prime"
	case Echoes:
		return "Echoes"
	case Corruption:
		return "Corruption"
	case PrimeRemaster:
		return "PrimeRemaster"
	default:
		return "Unknown"
	}
}

// UsesAssetID32 reports whether the game's asset ids are 32-bit (Prime 1/2).
func (g Game) UsesAssetID32() bool {
	return g == Prime || g == Echoes
}

// UsesAssetID64 reports whether the game's asset ids are 64-bit (Prime 3).
func (g Game) UsesAssetID64() bool {
	return g == Corruption
}

// UsesGUID reports whether the game identifies assets by 128-bit GUID
// (the Remaster).
func (g Game) UsesGUID() bool {
	return g == PrimeRemaster
}

// UsesLZO reports whether this game's PAKs/MREAs use the global
// compressed-block layer (§4.D), as opposed to Prime 1's per-resource
// compression flag.
func (g Game) UsesLZO() bool {
	return g == Echoes || g == Corruption
}

// InvalidAssetID returns the game's single reserved "no asset" value.
func (g Game) InvalidAssetID() AssetID {
	switch {
	case g.UsesAssetID32():
		return NewAssetID(0xFFFFFFFF)
	case g.UsesAssetID64():
		return NewAssetID(0xFFFFFFFFFFFFFFFF)
	case g.UsesGUID():
		return NewAssetGUID(uuid.Nil)
	default:
		panic("retroid: unknown game")
	}
}

// IsValid reports whether id could possibly name a real asset for this
// game: it is not the reserved invalid value, and (32-bit games only)
// it is not zero.
func (g Game) IsValid(id AssetID) bool {
	if g.UsesGUID() != id.IsGUID() {
		return false
	}
	if g.UsesAssetID32() && id.Numeric == 0 {
		return false
	}
	return id != g.InvalidAssetID()
}

// MLVLDependenciesToIgnore is the per-game set of asset ids that are
// forced to exclude_from_mlvl=true regardless of what their producing
// dependency source says (§4.G override layer).
func (g Game) MLVLDependenciesToIgnore() []AssetID {
	if g == Echoes {
		return []AssetID{NewAssetID(0x7b2ea5b1)}
	}
	return nil
}

// SpecialANCSDependencies returns game-defined dependencies prepended to
// every per-character ANCS dependency query (§4.G ANCS-per-character
// variant). Shipped game data does not require any for the supported
// games; the hook exists so a caller extending this table does not need
// to touch the engine.
func (g Game) SpecialANCSDependencies(ancsID AssetID) []Dependency {
	return nil
}

// AlwaysLoadedAudioGroupDGRP is the asset id of the DGRP resource listing
// audio groups that are always resident, used by §4.I to decide whether an
// AGSC dependency should be marked exclude_from_mlvl. Only defined for
// Echoes, per the original's `audio_groups_single_player_DGRP` constant.
func (g Game) AlwaysLoadedAudioGroupDGRP() (AssetID, bool) {
	if g == Echoes {
		return NewAssetID(0x31CB5ADB), true
	}
	return AssetID{}, false
}
