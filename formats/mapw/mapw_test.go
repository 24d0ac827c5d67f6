package mapw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/retroid"
)

// TestParseS3Scenario reproduces spec.md's S3 literal scenario: the bytes
// DE AD F0 0D 00 00 00 01 00 00 00 02 AA AA AA AA BB BB BB BB decode to two
// MAPA dependencies, 0xAAAAAAAA and 0xBBBBBBBB, in file order.
func TestParseS3Scenario(t *testing.T) {
	data := []byte{
		0xDE, 0xAD, 0xF0, 0x0D,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02,
		0xAA, 0xAA, 0xAA, 0xAA,
		0xBB, 0xBB, 0xBB, 0xBB,
	}

	value, err := Parse(retroid.Prime, data)
	require.NoError(t, err)

	m, ok := value.(*Mapw)
	require.True(t, ok)
	require.Len(t, m.AreaMap, 2)
	assert.Equal(t, retroid.NewAssetID(0xAAAAAAAA), m.AreaMap[0])
	assert.Equal(t, retroid.NewAssetID(0xBBBBBBBB), m.AreaMap[1])

	deps := m.DependenciesFor()
	mapaType := retroid.ParseAssetType("MAPA")
	require.Len(t, deps, 2)
	assert.Equal(t, retroid.NewDependency(mapaType, retroid.NewAssetID(0xAAAAAAAA)), deps[0])
	assert.Equal(t, retroid.NewDependency(mapaType, retroid.NewAssetID(0xBBBBBBBB)), deps[1])
}

func TestParseBadMagic(t *testing.T) {
	_, err := Parse(retroid.Prime, []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestBuildRoundTrip(t *testing.T) {
	m := &Mapw{AreaMap: []retroid.AssetID{
		retroid.NewAssetID(0x1111),
		retroid.NewAssetID(0x2222),
		retroid.NewAssetID(0x3333),
	}}
	encoded, err := Build(retroid.Prime, m)
	require.NoError(t, err)

	value, err := Parse(retroid.Prime, encoded)
	require.NoError(t, err)
	assert.Equal(t, m, value)
}

func TestBuildRoundTrip64Bit(t *testing.T) {
	m := &Mapw{AreaMap: []retroid.AssetID{
		retroid.NewAssetID(0x1122334455667788),
	}}
	encoded, err := Build(retroid.Corruption, m)
	require.NoError(t, err)

	value, err := Parse(retroid.Corruption, encoded)
	require.NoError(t, err)
	assert.Equal(t, m, value)
}

func TestBuildWrongType(t *testing.T) {
	_, err := Build(retroid.Prime, "not a mapw")
	assert.Error(t, err)
}

func TestHasDependencies(t *testing.T) {
	assert.True(t, HasDependencies(retroid.Prime))
}
