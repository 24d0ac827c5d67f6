package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/retroid"
	"github.com/axiodl/retropak/scriptlayer"
)

// TestBuildAppliesSanctumHardcodedOverride reproduces spec.md's S5 literal
// scenario: Sanctum (0xD7C3B839) forces its "Emperor Ing Stage 1" layer to
// depend on TXTR 0x52C7D438 even when no script instance in that layer
// references it.
func TestBuildAppliesSanctumHardcodedOverride(t *testing.T) {
	noopScan := func(game retroid.Game, inst scriptlayer.Instance) []retroid.Dependency { return nil }
	builder := NewAreaDependencyBuilder(noopScan)

	layerNames := []string{"Default", "Emperor Ing Stage 1", "Emperor Ing Stage 3"}
	layers := []*scriptlayer.Layer{
		scriptlayer.NewLayer(layerNames[0], 0, nil, retroid.Echoes),
		scriptlayer.NewLayer(layerNames[1], 1, nil, retroid.Echoes),
		scriptlayer.NewLayer(layerNames[2], 2, nil, retroid.Echoes),
	}

	sanctumID := retroid.NewAssetID(0xD7C3B839)
	deps, err := builder.Build(retroid.Echoes, sanctumID, layerNames, layers, nil, nil)
	require.NoError(t, err)

	txtrType := retroid.ParseAssetType("TXTR")
	assert.Contains(t, deps, retroid.NewDependency(txtrType, retroid.NewAssetID(0x52C7D438)))
	assert.Contains(t, deps, retroid.NewDependency(txtrType, retroid.NewAssetID(0xd5b9e5d1)))
}

func TestBuildWithNoHardcodedEntryIsUnaffected(t *testing.T) {
	noopScan := func(game retroid.Game, inst scriptlayer.Instance) []retroid.Dependency { return nil }
	builder := NewAreaDependencyBuilder(noopScan)

	layerNames := []string{"Default"}
	layers := []*scriptlayer.Layer{scriptlayer.NewLayer("Default", 0, nil, retroid.Echoes)}

	unrelatedID := retroid.NewAssetID(0x12345678)
	deps, err := builder.Build(retroid.Echoes, unrelatedID, layerNames, layers, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestBuildMergesGeneratedScriptObjectsByLayerIndex(t *testing.T) {
	txtrType := retroid.ParseAssetType("TXTR")
	scan := func(game retroid.Game, inst scriptlayer.Instance) []retroid.Dependency {
		return []retroid.Dependency{retroid.NewDependency(txtrType, retroid.NewAssetID(uint64(inst.ID)))}
	}
	builder := NewAreaDependencyBuilder(scan)

	layerNames := []string{"Default", "Combat"}
	layers := []*scriptlayer.Layer{
		scriptlayer.NewLayer("Default", 0, nil, retroid.Echoes),
		scriptlayer.NewLayer("Combat", 1, nil, retroid.Echoes),
	}

	generatedLayer := scriptlayer.NewLayer("generated_script_objects", 0, nil, retroid.Echoes)
	// LayerIndex is the top six bits (ID >> 26); 1<<26 routes to layer index 1.
	require.NoError(t, generatedLayer.AppendInstance(scriptlayer.Instance{ID: 1<<26 | 0x01}))

	deps, err := builder.Build(retroid.Echoes, retroid.NewAssetID(0x1), layerNames, layers, generatedLayer, nil)
	require.NoError(t, err)
	assert.Contains(t, deps, retroid.NewDependency(txtrType, retroid.NewAssetID(1<<26|0x01)))
}

func TestBuildOrdersNonLayerBucketLast(t *testing.T) {
	noopScan := func(game retroid.Game, inst scriptlayer.Instance) []retroid.Dependency { return nil }
	builder := NewAreaDependencyBuilder(noopScan)
	layerNames := []string{"Default"}
	layers := []*scriptlayer.Layer{scriptlayer.NewLayer("Default", 0, nil, retroid.Echoes)}

	txtrType := retroid.ParseAssetType("TXTR")
	nonLayerDeps := []retroid.Dependency{retroid.NewDependency(txtrType, retroid.NewAssetID(0x1))}

	require.NoError(t, layers[0].AppendInstance(scriptlayer.Instance{ID: 0x1}))
	deps, err := builder.Build(retroid.Echoes, retroid.NewAssetID(0x2), layerNames, layers, nil, nonLayerDeps)
	require.NoError(t, err)
	require.NotEmpty(t, deps)
	assert.Equal(t, nonLayerDeps[0], deps[len(deps)-1])
}

func TestDedupePreserveOrder(t *testing.T) {
	txtrType := retroid.ParseAssetType("TXTR")
	a := retroid.NewDependency(txtrType, retroid.NewAssetID(0x1))
	b := retroid.NewDependency(txtrType, retroid.NewAssetID(0x2))
	deps := []retroid.Dependency{a, b, a}
	out := dedupePreserveOrder(deps)
	assert.Equal(t, []retroid.Dependency{a, b}, out)
}
