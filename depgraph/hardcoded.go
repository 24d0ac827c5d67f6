package depgraph

import "github.com/axiodl/retropak/retroid"

// NonLayerKey is the sentinel layer name used by hardcodedDependencies for
// area-scoped (as opposed to per-layer) augmentations.
const NonLayerKey = "!!non_layer!!"

func dep(t string, id uint32) retroid.Dependency {
	return retroid.NewDependency(retroid.ParseAssetType(t), retroid.NewAssetID(uint64(id)))
}

// hardcodedDependencies patches known gaps in Echoes' shipped dependency
// data: (type, id) pairs that script instances in a given layer reference
// but that never made it into the PAK's recorded dependency list. Keyed by
// MREA asset id, then by layer name (or NonLayerKey for area-scoped
// entries).
var hardcodedDependencies = map[uint32]map[string][]retroid.Dependency{
	0xD7C3B839: { // Sanctum
		"Default":                         {dep("TXTR", 0xd5b9e5d1)},
		"Emperor Ing Stage 1":              {dep("TXTR", 0x52c7d438)},
		"Emperor Ing Stage 3":              {dep("TXTR", 0xd5b9e5d1)},
		"Emperor Ing Stage 1 Intro Cine":   {dep("TXTR", 0x52c7d438)},
		"Emperor Ing Stage 3 Death Cine":   {dep("TXTR", 0xd5b9e5d1)},
	},
	0xA92F00B3: { // Hive Temple
		"CliffsideBoss": {
			dep("TXTR", 0x24149e16),
			dep("TXTR", 0xbdb8a88a),
			dep("FSM2", 0x3d31822b),
		},
	},
	0xC0113CE8: {"3rd Pass": {dep("RULE", 0x393ca543)}},             // Dynamo Works
	0x5571E89E: {"2nd Pass Enemies": {dep("RULE", 0x393ca543)}},     // Hall of Combat Mastery
	0x7B94B06B: { // Hive Portal Chamber
		"1st Pass": {dep("RULE", 0x393ca543)},
		"2nd Pass": {dep("RULE", 0x393ca543)},
	},
	0xF8DBC03D: {"2nd Pass": {dep("RULE", 0x393ca543)}},             // Hive Reactor
	0xB666B655: {"2nd Pass": {dep("RULE", 0x393ca543)}},             // Reactor Access
	0xE79AAFAE: {"2nd Pass": {dep("RULE", 0x393ca543)}},             // Transport A Access
	0xFEB7BD27: {"Default": {dep("RULE", 0x393ca543)}},              // Transport B Access
	0x89D246FD: {"Default": {dep("RULE", 0x393ca543)}},              // Portal Access
	0x0253782D: {"Default": {dep("RULE", 0x393ca543)}},              // Dark Forgotten Bridge
	0x09DECF21: {"Default": {dep("RULE", 0x393ca543)}},              // Forgotten Bridge
	0x629790F4: {"1st Pass": {dep("RULE", 0x393ca543)}},             // Sacrificial Chamber
	0xBBE4B3AE: {"Default": {dep("TXTR", 0xe252e7f6)}},              // Dungeon
	0x2BCD44A7: {"Default": {dep("TXTR", 0xb6fa5023)}},              // Portal Terminal
	0xC68B5B51: {NonLayerKey: {dep("TXTR", 0x75a219a8)}},            // Transport to Sanctuary Fortress
	0x625A2692: {NonLayerKey: {dep("TXTR", 0x581c56ea)}},            // Temple Transport Access
	0x96F4CA1E: {"Default": {dep("TXTR", 0xac080dfb)}},              // Minigyro Chamber
	0x5BBF334F: {NonLayerKey: {dep("TXTR", 0x738feb19)}},            // Staging Area
}
