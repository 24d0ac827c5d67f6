// Package config exposes the small set of numeric constants the codec
// packages need that the original implementation hardcoded (block size
// threshold, alignment, the compressed buffer-size bonus, the generated-id
// seed). They are wired through viper so a host application can override
// them for testing against non-retail data without patching the library.
package config

import (
	"github.com/spf13/viper"
)

// Tunables holds the constants the asset manager passes on: BlockSizeLimit
// and CompressedBufferBonus to pak.Pak.Build (and through it to lzoblock),
// and GeneratedIDSeed to its fresh-id allocator. mrea.Build does not read
// them; it always uses 0x20000 and 0x120.
type Tunables struct {
	// BlockSizeLimit is the §4.D size rule threshold: a compressed block is
	// closed once adding the next section would exceed this many bytes of
	// uncompressed payload.
	BlockSizeLimit int

	// Alignment is loaded like the other values but is not read by any
	// codec: pak, mrea, and lzoblock pad to their own fixed 16- or 32-byte
	// boundaries.
	Alignment int

	// CompressedBufferBonus is added to a compressed block's buffer_size
	// when compression wins, modeling the runtime scratch allowance the
	// original game reserves (§4.D rule 3, §9 open question — the constant
	// is replicated, not derived).
	CompressedBufferBonus uint32

	// GeneratedIDSeed is the first value handed out by
	// AssetManager.GenerateAssetID.
	GeneratedIDSeed uint64
}

// Defaults returns the constants as specified in spec.md, unmodified.
func Defaults() Tunables {
	return Tunables{
		BlockSizeLimit:        0x20000,
		Alignment:             32,
		CompressedBufferBonus: 0x120,
		GeneratedIDSeed:       0xFFFF0000,
	}
}

// Load reads overrides from the given viper instance on top of Defaults.
// A nil or empty v leaves the defaults untouched. Keys are
// "block_size_limit", "alignment", "compressed_buffer_bonus", and
// "generated_id_seed" (also readable from equivalently-named environment
// variables via v.AutomaticEnv, a host application's responsibility to
// enable).
func Load(v *viper.Viper) Tunables {
	t := Defaults()
	if v == nil {
		return t
	}
	if v.IsSet("block_size_limit") {
		t.BlockSizeLimit = v.GetInt("block_size_limit")
	}
	if v.IsSet("alignment") {
		t.Alignment = v.GetInt("alignment")
	}
	if v.IsSet("compressed_buffer_bonus") {
		t.CompressedBufferBonus = uint32(v.GetUint32("compressed_buffer_bonus"))
	}
	if v.IsSet("generated_id_seed") {
		t.GeneratedIDSeed = v.GetUint64("generated_id_seed")
	}
	return t
}
