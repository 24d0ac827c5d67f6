package depgraph

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiodl/retropak/formats/mapw"
	"github.com/axiodl/retropak/registry"
	"github.com/axiodl/retropak/retroid"
)

type fakeSource struct {
	game  retroid.Game
	types map[retroid.AssetID]retroid.AssetType
	raw   map[retroid.AssetID][]byte
}

func newFakeSource(game retroid.Game) *fakeSource {
	return &fakeSource{
		game:  game,
		types: make(map[retroid.AssetID]retroid.AssetType),
		raw:   make(map[retroid.AssetID][]byte),
	}
}

func (s *fakeSource) put(id retroid.AssetID, t retroid.AssetType, data []byte) {
	s.types[id] = t
	s.raw[id] = data
}

func (s *fakeSource) GetAssetType(id retroid.AssetID) (retroid.AssetType, error) {
	t, ok := s.types[id]
	if !ok {
		return retroid.AssetType{}, errors.Errorf("unknown asset %s", id)
	}
	return t, nil
}

func (s *fakeSource) GetRawAsset(id retroid.AssetID) ([]byte, error) {
	d, ok := s.raw[id]
	if !ok {
		return nil, errors.Errorf("unknown asset %s", id)
	}
	return d, nil
}

func TestGetDependenciesForAssetInvalidID(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())

	deps, err := engine.GetDependenciesForAsset(retroid.Prime.InvalidAssetID(), false)
	require.NoError(t, err)
	assert.Nil(t, deps)
}

func TestGetDependenciesForAssetUnknownSwallowedWithoutMustExist(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())

	deps, err := engine.GetDependenciesForAsset(retroid.NewAssetID(0xDEAD), false)
	require.NoError(t, err)
	assert.Nil(t, deps)
}

func TestGetDependenciesForAssetUnknownErrorsWithMustExist(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())

	_, err := engine.GetDependenciesForAsset(retroid.NewAssetID(0xDEAD), true)
	assert.Error(t, err)
}

func TestGetDependenciesForAssetResolvesMAPWTransitively(t *testing.T) {
	source := newFakeSource(retroid.Prime)

	mapaType := retroid.ParseAssetType("MAPA")
	mapaID := retroid.NewAssetID(0xAAAA)
	source.put(mapaID, mapaType, []byte("opaque map area"))

	m := &mapw.Mapw{AreaMap: []retroid.AssetID{mapaID}}
	mapwData, err := mapw.Build(retroid.Prime, m)
	require.NoError(t, err)

	mapwType := retroid.ParseAssetType("MAPW")
	mapwID := retroid.NewAssetID(0xBBBB)
	source.put(mapwID, mapwType, mapwData)

	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())
	deps, err := engine.GetDependenciesForAsset(mapwID, true)
	require.NoError(t, err)

	require.Len(t, deps, 2)
	assert.Equal(t, retroid.NewDependency(mapaType, mapaID), deps[0])
	assert.Equal(t, retroid.NewDependency(mapwType, mapwID), deps[1])
}

func TestGetDependenciesForAssetIsCached(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	strgType := retroid.ParseAssetType("STRG")
	strgID := retroid.NewAssetID(0x1)
	source.put(strgID, strgType, []byte("opaque"))

	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())
	first, err := engine.GetDependenciesForAsset(strgID, true)
	require.NoError(t, err)

	delete(source.raw, strgID)
	second, err := engine.GetDependenciesForAsset(strgID, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMLVLIgnoreOverrideAppliesToSelf(t *testing.T) {
	source := newFakeSource(retroid.Echoes)
	ignoredID := retroid.NewAssetID(0x7b2ea5b1)
	txtrType := retroid.ParseAssetType("TXTR")
	source.put(ignoredID, txtrType, []byte("opaque"))

	engine := New(retroid.Echoes, registry.NewDefault(), source, zerolog.Nop())
	deps, err := engine.GetDependenciesForAsset(ignoredID, true)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.True(t, deps[0].ExcludeFromMLVL)
}

func TestGetDependenciesForANCSWrongTypeErrors(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	strgType := retroid.ParseAssetType("STRG")
	strgID := retroid.NewAssetID(0x1)
	source.put(strgID, strgType, []byte("opaque"))

	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())
	_, err := engine.GetDependenciesForANCS(strgID, 0, func() ([]retroid.Dependency, error) { return nil, nil })
	assert.Error(t, err)
}

func TestGetDependenciesForANCSOrdersSpecialThenCharacterThenSelf(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	ancsType := retroid.ParseAssetType("ANCS")
	ancsID := retroid.NewAssetID(0x1)
	source.put(ancsID, ancsType, []byte("opaque"))

	engine := New(retroid.Prime, registry.NewDefault(), source, zerolog.Nop())

	txtrType := retroid.ParseAssetType("TXTR")
	charDep := retroid.NewDependency(txtrType, retroid.NewAssetID(0x2))
	deps, err := engine.GetDependenciesForANCS(ancsID, 0, func() ([]retroid.Dependency, error) {
		return []retroid.Dependency{charDep}, nil
	})
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, charDep, deps[0])
	assert.Equal(t, retroid.NewDependency(ancsType, ancsID), deps[1])
}

func TestCheatScannerShortCircuitsFullParse(t *testing.T) {
	source := newFakeSource(retroid.Prime)
	txtrType := retroid.ParseAssetType("TXTR")
	evntType := retroid.ParseAssetType("EVNT")
	evntID := retroid.NewAssetID(0x1)
	txtrID := retroid.NewAssetID(0x2)
	source.put(evntID, evntType, []byte{0xDE, 0xAD})
	source.put(txtrID, txtrType, []byte("texture bytes"))

	reg := registry.NewDefault()
	reg.RegisterCheat(evntType, func(game retroid.Game, data []byte) ([]retroid.Dependency, error) {
		return []retroid.Dependency{retroid.NewDependency(txtrType, txtrID)}, nil
	})

	engine := New(retroid.Prime, reg, source, zerolog.Nop())
	deps, err := engine.GetDependenciesForAsset(evntID, true)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, retroid.NewDependency(txtrType, txtrID), deps[0])
	assert.Equal(t, retroid.NewDependency(evntType, evntID), deps[1])
}
