package scriptlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/retroid"
)

func sampleInstances() []Instance {
	doorType := retroid.ParseAssetType("DOOR")
	trgrType := retroid.ParseAssetType("TRGR")
	return []Instance{
		{
			ID:         0x00010001,
			Type:       doorType,
			Properties: []byte("door properties"),
			Connections: []Connection{
				{State: retroid.ParseAssetType("OPEN"), Message: retroid.ParseAssetType("CLSE"), TargetID: 0x00010002},
			},
		},
		{
			ID:         0x00010002,
			Type:       trgrType,
			Properties: []byte("trigger properties"),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	instances := sampleInstances()
	raw, err := encodeInstances(instances)
	require.NoError(t, err)

	decoded, err := decodeInstances(raw)
	require.NoError(t, err)
	assert.Equal(t, instances, decoded)
}

func TestLayerInstancesParsesLazily(t *testing.T) {
	instances := sampleInstances()
	raw, err := encodeInstances(instances)
	require.NoError(t, err)

	layer := NewLayer("Default", 0, raw, retroid.Prime)
	assert.False(t, layer.Modified())

	got, err := layer.Instances()
	require.NoError(t, err)
	assert.Equal(t, instances, got)
}

func TestLayerEmptyRaw(t *testing.T) {
	layer := NewLayer("Empty", 0, nil, retroid.Prime)
	got, err := layer.Instances()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendInstanceMarksModified(t *testing.T) {
	layer := NewLayer("Default", 0, nil, retroid.Prime)
	newInst := Instance{ID: 0x1, Type: retroid.ParseAssetType("DOOR")}
	require.NoError(t, layer.AppendInstance(newInst))
	assert.True(t, layer.Modified())

	got, err := layer.Instances()
	require.NoError(t, err)
	assert.Equal(t, []Instance{newInst}, got)
}

func TestRemoveInstance(t *testing.T) {
	instances := sampleInstances()
	raw, err := encodeInstances(instances)
	require.NoError(t, err)

	layer := NewLayer("Default", 0, raw, retroid.Prime)
	removed, err := layer.RemoveInstance(0x00010001)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, layer.Modified())

	got, err := layer.Instances()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(0x00010002), got[0].ID)
}

func TestRemoveInstanceMissing(t *testing.T) {
	layer := NewLayer("Default", 0, nil, retroid.Prime)
	removed, err := layer.RemoveInstance(0xDEAD)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.False(t, layer.Modified())
}

func TestDependenciesForUsesScanner(t *testing.T) {
	instances := sampleInstances()
	raw, err := encodeInstances(instances)
	require.NoError(t, err)
	layer := NewLayer("Default", 0, raw, retroid.Prime)

	txtrType := retroid.ParseAssetType("TXTR")
	scan := func(game retroid.Game, inst Instance) []retroid.Dependency {
		return []retroid.Dependency{retroid.NewDependency(txtrType, retroid.NewAssetID(uint64(inst.ID)))}
	}

	deps, err := layer.DependenciesFor(scan)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, retroid.NewAssetID(0x00010001), deps[0].ID)
	assert.Equal(t, retroid.NewAssetID(0x00010002), deps[1].ID)
}

func TestLayerIndexFromGeneratedID(t *testing.T) {
	inst := Instance{ID: 0x04000001}
	assert.Equal(t, 1, inst.LayerIndex())
}

func TestEncodeRoundTripPreservesConnections(t *testing.T) {
	layer := NewLayer("Default", 0, nil, retroid.Prime)
	inst := Instance{
		ID:   0x1,
		Type: retroid.ParseAssetType("DOOR"),
		Connections: []Connection{
			{State: retroid.ParseAssetType("ACTV"), Message: retroid.ParseAssetType("OPEN"), TargetID: 0x2},
		},
		Properties: []byte("props"),
	}
	require.NoError(t, layer.AppendInstance(inst))

	encoded, err := layer.Encode()
	require.NoError(t, err)

	decoded, err := decodeInstances(encoded)
	require.NoError(t, err)
	assert.Equal(t, []Instance{inst}, decoded)
}
