// Package retroid defines the identifiers shared by every other package in
// this module: asset ids, resource type tags, the per-game id-width rules,
// and the dependency triple that the engine and the asset manager pass
// around.
package retroid

import (
	"fmt"

	"github.com/google/uuid"
)

// AssetType is a 4-character ASCII resource type tag, e.g. "MREA", "STRG".
type AssetType [4]byte

// ParseAssetType interns a 4-byte string into an AssetType. It panics if s
// is not exactly 4 bytes; callers deal in literals or previously-validated
// strings, so this is a programmer error rather than a runtime one.
func ParseAssetType(s string) AssetType {
	if len(s) != 4 {
		panic(fmt.Sprintf("retroid: resource type tag %q is not 4 bytes", s))
	}
	var t AssetType
	copy(t[:], s)
	return t
}

func (t AssetType) String() string {
	return string(t[:])
}

// AssetID identifies a resource. Prime 1/2 use 32-bit ids, Prime 3 uses
// 64-bit ids, and the Remaster uses a 128-bit GUID; all three are
// represented by this single comparable struct so it can key a map
// regardless of which game produced it.
type AssetID struct {
	Numeric uint64
	GUID    uuid.UUID
	isGUID  bool
}

// NewAssetID wraps a numeric (32- or 64-bit) asset id.
func NewAssetID(value uint64) AssetID {
	return AssetID{Numeric: value}
}

// NewAssetGUID wraps a Remaster-style GUID asset id.
func NewAssetGUID(id uuid.UUID) AssetID {
	return AssetID{GUID: id, isGUID: true}
}

// IsGUID reports whether this id is a Remaster-style GUID rather than a
// numeric id.
func (a AssetID) IsGUID() bool {
	return a.isGUID
}

func (a AssetID) String() string {
	if a.isGUID {
		return a.GUID.String()
	}
	return fmt.Sprintf("%#x", a.Numeric)
}

// Dependency is a single edge in the dependency graph: an asset of the
// given type and id, tagged with whether it must be excluded from the
// MLVL-level dependency list even though the edge is real.
type Dependency struct {
	Type            AssetType
	ID              AssetID
	ExcludeFromMLVL bool
}

func NewDependency(t AssetType, id AssetID) Dependency {
	return Dependency{Type: t, ID: id}
}
